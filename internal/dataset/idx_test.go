package dataset

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

func TestReadImagesGzipAndRaw(t *testing.T) {
	raw := idxImages(2, 2, 3, func(i, p int) byte { return byte(255 * ((i + p) % 2)) })
	for name, data := range map[string][]byte{"raw": raw, "gzip": gz(t, raw)} {
		pixels, n, rows, cols, err := ReadImages(bytes.NewReader(data))
		if err != nil {
			t.Fatalf("%s: ReadImages: %v", name, err)
		}
		if n != 2 || rows != 2 || cols != 3 {
			t.Fatalf("%s: unexpected shape n=%d rows=%d cols=%d", name, n, rows, cols)
		}
		if len(pixels) != 12 {
			t.Fatalf("%s: expected 12 pixels, got %d", name, len(pixels))
		}
		if pixels[0] != 0 || pixels[1] != 1 || pixels[6] != 1 {
			t.Fatalf("%s: pixels not scaled to [0,1]: %v", name, pixels)
		}
	}
}

func TestReadImagesRejectsBadMagic(t *testing.T) {
	data := idxLabels([]byte{1, 2})
	if _, _, _, _, err := ReadImages(bytes.NewReader(data)); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestReadImagesRejectsShortPayload(t *testing.T) {
	data := idxImages(3, 2, 2, func(int, int) byte { return 0 })
	if _, _, _, _, err := ReadImages(bytes.NewReader(data[:len(data)-1])); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestReadLabels(t *testing.T) {
	labels, err := ReadLabels(bytes.NewReader(gz(t, idxLabels([]byte{0, 9, 3}))))
	if err != nil {
		t.Fatalf("ReadLabels: %v", err)
	}
	if len(labels) != 3 || labels[1] != 9 || labels[2] != 3 {
		t.Fatalf("unexpected labels %v", labels)
	}
}

func TestReadLabelsRejectsOutOfRange(t *testing.T) {
	if _, err := ReadLabels(bytes.NewReader(idxLabels([]byte{1, 10}))); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestTextLabels(t *testing.T) {
	got := TextLabels([]int{0, 9, 12, -1})
	want := []string{"t-shirt", "ankle boot", "unknown", "unknown"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("label %d: got %q want %q", i, got[i], want[i])
		}
	}
}

func TestReadImagesHugeHeaderWithoutPayload(t *testing.T) {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, [4]uint32{imageMagic, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF})
	if _, _, _, _, err := ReadImages(bytes.NewReader(buf.Bytes())); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}

func TestReadImagesHeaderLargerThanStream(t *testing.T) {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, [4]uint32{imageMagic, 1 << 20, 28, 28})
	buf.Write(make([]byte, 100))
	for name, data := range map[string][]byte{"raw": buf.Bytes(), "gzip": gz(t, buf.Bytes())} {
		if _, _, _, _, err := ReadImages(bytes.NewReader(data)); !errors.Is(err, ErrFormat) {
			t.Fatalf("%s: expected ErrFormat, got %v", name, err)
		}
	}
}

func TestReadLabelsHugeHeaderWithoutPayload(t *testing.T) {
	buf := &bytes.Buffer{}
	binary.Write(buf, binary.BigEndian, [2]uint32{labelMagic, 0xFFFFFFFF})
	buf.Write([]byte{1, 2, 3})
	if _, err := ReadLabels(bytes.NewReader(buf.Bytes())); !errors.Is(err, ErrFormat) {
		t.Fatalf("expected ErrFormat, got %v", err)
	}
}
