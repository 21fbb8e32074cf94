package dataset

import (
	"math"
	"os"

	"github.com/pkg/errors"
)

// Set is an in-memory split of the dataset. Images are stored row-major,
// one after another, with pixel values in [0,1].
type Set struct {
	Images []float64
	Labels []int
	Rows   int
	Cols   int
}

// Len returns the number of examples.
func (s *Set) Len() int {
	return len(s.Labels)
}

// Features returns the flattened size of a single image.
func (s *Set) Features() int {
	return s.Rows * s.Cols
}

// Image returns the pixels of example i without copying.
func (s *Set) Image(i int) []float64 {
	f := s.Features()
	return s.Images[i*f : (i+1)*f]
}

// Load reads the training or test split from dir. A positive resize scales
// every image to resize x resize with bilinear interpolation.
func Load(dir string, train bool, resize int) (*Set, error) {
	found, err := Discover(dir)
	if err != nil {
		return nil, err
	}
	imgName, lblName := TestImagesFile, TestLabelsFile
	if train {
		imgName, lblName = TrainImagesFile, TrainLabelsFile
	}
	imgPath, ok := found[imgName]
	if !ok {
		return nil, errors.Errorf("dataset: %s not found under %s", imgName, dir)
	}
	lblPath, ok := found[lblName]
	if !ok {
		return nil, errors.Errorf("dataset: %s not found under %s", lblName, dir)
	}

	set, err := readSet(imgPath, lblPath)
	if err != nil {
		return nil, err
	}
	if resize > 0 && (resize != set.Rows || resize != set.Cols) {
		set = set.Resize(resize, resize)
	}
	return set, nil
}

func readSet(imgPath, lblPath string) (*Set, error) {
	fi, err := os.Open(imgPath)
	if err != nil {
		return nil, errors.Wrap(err, "open images")
	}
	defer fi.Close()
	pixels, n, rows, cols, err := ReadImages(fi)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", imgPath)
	}

	fl, err := os.Open(lblPath)
	if err != nil {
		return nil, errors.Wrap(err, "open labels")
	}
	defer fl.Close()
	labels, err := ReadLabels(fl)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", lblPath)
	}
	if len(labels) != n {
		return nil, errors.Wrapf(ErrFormat, "%d images but %d labels", n, len(labels))
	}
	return &Set{Images: pixels, Labels: labels, Rows: rows, Cols: cols}, nil
}

// Resize returns a copy of s with every image bilinearly resampled to
// rows x cols, sampling at pixel centres.
func (s *Set) Resize(rows, cols int) *Set {
	n := s.Len()
	out := &Set{
		Images: make([]float64, n*rows*cols),
		Labels: append([]int(nil), s.Labels...),
		Rows:   rows,
		Cols:   cols,
	}
	sy := float64(s.Rows) / float64(rows)
	sx := float64(s.Cols) / float64(cols)
	for i := 0; i < n; i++ {
		src := s.Image(i)
		dst := out.Image(i)
		for y := 0; y < rows; y++ {
			fy := clamp((float64(y)+0.5)*sy-0.5, 0, float64(s.Rows-1))
			y0 := int(fy)
			y1 := min(y0+1, s.Rows-1)
			wy := fy - float64(y0)
			for x := 0; x < cols; x++ {
				fx := clamp((float64(x)+0.5)*sx-0.5, 0, float64(s.Cols-1))
				x0 := int(fx)
				x1 := min(x0+1, s.Cols-1)
				wx := fx - float64(x0)
				top := src[y0*s.Cols+x0]*(1-wx) + src[y0*s.Cols+x1]*wx
				bot := src[y1*s.Cols+x0]*(1-wx) + src[y1*s.Cols+x1]*wx
				dst[y*cols+x] = top*(1-wy) + bot*wy
			}
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
