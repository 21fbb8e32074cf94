package dataset

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const (
	imageMagic = 0x00000803
	labelMagic = 0x00000801

	// maxPayload bounds the byte count a header may announce.
	maxPayload = 1 << 34
)

// ErrFormat reports a malformed IDX file.
var ErrFormat = errors.New("dataset: malformed idx data")

// maybeGunzip returns a reader over the decompressed stream when r starts
// with the gzip magic bytes, and r itself otherwise.
func maybeGunzip(r io.Reader) (io.Reader, func() error, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(2)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, nil, errors.Wrap(err, "peek header")
	}
	if len(head) == 2 && head[0] == 0x1f && head[1] == 0x8b {
		zr, err := gzip.NewReader(br)
		if err != nil {
			return nil, nil, errors.Wrap(err, "open gzip")
		}
		return zr, zr.Close, nil
	}
	return br, func() error { return nil }, nil
}

// readPayload reads exactly n bytes. The buffer grows only as data arrives,
// so a header announcing more than the stream holds fails with ErrFormat.
func readPayload(r io.Reader, n int64) ([]byte, error) {
	var buf bytes.Buffer
	got, err := io.CopyN(&buf, r, n)
	if errors.Is(err, io.EOF) {
		return nil, errors.Wrapf(ErrFormat, "short payload: %d of %d bytes", got, n)
	}
	if err != nil {
		return nil, errors.Wrapf(ErrFormat, "read payload: %v", err)
	}
	return buf.Bytes(), nil
}

// ReadImages decodes an IDX3 image file, gzip-compressed or raw. Pixels are
// scaled into [0,1] and returned row-major, one image after another.
func ReadImages(r io.Reader) (pixels []float64, n, rows, cols int, err error) {
	src, closeFn, err := maybeGunzip(r)
	if err != nil {
		return nil, 0, 0, 0, err
	}
	defer closeFn()

	var hdr [4]uint32
	if err := binary.Read(src, binary.BigEndian, &hdr); err != nil {
		return nil, 0, 0, 0, errors.Wrapf(ErrFormat, "image header: %v", err)
	}
	if hdr[0] != imageMagic {
		return nil, 0, 0, 0, errors.Wrapf(ErrFormat, "image magic %#x", hdr[0])
	}
	n, rows, cols = int(hdr[1]), int(hdr[2]), int(hdr[3])
	if rows == 0 || cols == 0 {
		return nil, 0, 0, 0, errors.Wrapf(ErrFormat, "image size %dx%d", rows, cols)
	}
	size := uint64(hdr[2]) * uint64(hdr[3])
	if hdr[1] != 0 && size > maxPayload/uint64(hdr[1]) {
		return nil, 0, 0, 0, errors.Wrapf(ErrFormat, "image header announces %d images of %dx%d", n, rows, cols)
	}
	raw, err := readPayload(src, int64(size*uint64(hdr[1])))
	if err != nil {
		return nil, 0, 0, 0, errors.Wrap(err, "image payload")
	}
	pixels = make([]float64, len(raw))
	for i, b := range raw {
		pixels[i] = float64(b) / 255.0
	}
	return pixels, n, rows, cols, nil
}

// ReadLabels decodes an IDX1 label file, gzip-compressed or raw.
func ReadLabels(r io.Reader) ([]int, error) {
	src, closeFn, err := maybeGunzip(r)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var hdr [2]uint32
	if err := binary.Read(src, binary.BigEndian, &hdr); err != nil {
		return nil, errors.Wrapf(ErrFormat, "label header: %v", err)
	}
	if hdr[0] != labelMagic {
		return nil, errors.Wrapf(ErrFormat, "label magic %#x", hdr[0])
	}
	raw, err := readPayload(src, int64(hdr[1]))
	if err != nil {
		return nil, errors.Wrap(err, "label payload")
	}
	labels := make([]int, len(raw))
	for i, b := range raw {
		if int(b) >= NumClasses {
			return nil, errors.Wrapf(ErrFormat, "label %d at index %d out of range", b, i)
		}
		labels[i] = int(b)
	}
	return labels, nil
}
