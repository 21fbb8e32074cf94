package dataset

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

func idxImages(n, rows, cols int, pixel func(i, p int) byte) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, [4]uint32{imageMagic, uint32(n), uint32(rows), uint32(cols)})
	for i := 0; i < n; i++ {
		for p := 0; p < rows*cols; p++ {
			buf.WriteByte(pixel(i, p))
		}
	}
	return buf.Bytes()
}

func idxLabels(labels []byte) []byte {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, [2]uint32{labelMagic, uint32(len(labels))})
	buf.Write(labels)
	return buf.Bytes()
}

func gz(t *testing.T, data []byte) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	zw := gzip.NewWriter(buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func mustWrite(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// writeSplit writes a gzip image/label pair of n examples with label i%10
// and every pixel of image i equal to i.
func writeSplit(t *testing.T, dir string, train bool, n, rows, cols int) {
	t.Helper()
	imgName, lblName := TestImagesFile, TestLabelsFile
	if train {
		imgName, lblName = TrainImagesFile, TrainLabelsFile
	}
	labels := make([]byte, n)
	for i := range labels {
		labels[i] = byte(i % NumClasses)
	}
	mustWrite(t, filepath.Join(dir, imgName), gz(t, idxImages(n, rows, cols, func(i, _ int) byte { return byte(i) })))
	mustWrite(t, filepath.Join(dir, lblName), gz(t, idxLabels(labels)))
}

func syntheticSet(n, features int) *Set {
	s := &Set{Images: make([]float64, n*features), Labels: make([]int, n), Rows: 1, Cols: features}
	for i := 0; i < n; i++ {
		s.Labels[i] = i % NumClasses
		for j := 0; j < features; j++ {
			s.Images[i*features+j] = float64(i)
		}
	}
	return s
}
