package viz

import (
	"image"
	"image/color"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// GrayImage converts row-major pixels in [0,1] to an 8-bit grayscale image.
func GrayImage(pixels []float64, rows, cols int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := pixels[y*cols+x]
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			img.SetGray(x, y, color.Gray{Y: uint8(v*255 + 0.5)})
		}
	}
	return img
}

// ShowImages draws imgs on a rows x cols grid, titling each cell with the
// matching entry of titles, and writes the figure as PNG to path. Cells
// without an image are left blank; extra images are dropped.
func ShowImages(path string, imgs []image.Image, rows, cols int, titles []string, scale float64) error {
	if rows <= 0 || cols <= 0 {
		return errors.Errorf("viz: invalid grid %dx%d", rows, cols)
	}
	if scale <= 0 {
		scale = 1.5
	}

	plots := make([][]*plot.Plot, rows)
	for r := range plots {
		plots[r] = make([]*plot.Plot, cols)
		for c := range plots[r] {
			i := r*cols + c
			if i >= len(imgs) {
				continue
			}
			p := plot.New()
			b := imgs[i].Bounds()
			p.Add(plotter.NewImage(imgs[i], 0, 0, float64(b.Dx()), float64(b.Dy())))
			p.HideAxes()
			if i < len(titles) {
				p.Title.Text = titles[i]
			}
			plots[r][c] = p
		}
	}

	canvas := vgimg.New(vg.Length(float64(cols)*scale)*vg.Inch, vg.Length(float64(rows)*scale)*vg.Inch)
	dc := draw.New(canvas)
	tiles := draw.Tiles{
		Rows: rows,
		Cols: cols,
		PadX: vg.Millimeter,
		PadY: vg.Millimeter,
	}
	cells := plot.Align(plots, tiles, dc)
	for r := range plots {
		for c, p := range plots[r] {
			if p != nil {
				p.Draw(cells[r][c])
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create plot dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()
	if _, err := (vgimg.PngCanvas{Canvas: canvas}).WriteTo(f); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return f.Close()
}
