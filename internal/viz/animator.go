// Package viz renders training curves and labelled image grids to PNG.
package viz

import (
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

type lineFormat struct {
	color  color.Color
	dashes []vg.Length
}

// formats cycles solid blue, dashed magenta, dash-dot green, dotted red.
var formats = []lineFormat{
	{color: color.RGBA{R: 31, G: 119, B: 180, A: 255}},
	{color: color.RGBA{R: 191, B: 191, A: 255}, dashes: []vg.Length{vg.Points(6), vg.Points(3)}},
	{color: color.RGBA{G: 128, A: 255}, dashes: []vg.Length{vg.Points(6), vg.Points(2), vg.Points(1), vg.Points(2)}},
	{color: color.RGBA{R: 255, A: 255}, dashes: []vg.Length{vg.Points(1), vg.Points(2)}},
}

// Range is an optional axis limit. The zero value means automatic.
type Range struct {
	Min, Max float64
}

func (r Range) set() bool {
	return r.Max > r.Min
}

// AnimatorOptions configures an Animator.
type AnimatorOptions struct {
	Path   string
	XLabel string
	YLabel string
	XLim   Range
	YLim   Range
	Legend []string
	Width  vg.Length
	Height vg.Length
}

// Animator plots several series incrementally. Each Add re-renders the
// figure to Path, so the file always shows the latest frame.
type Animator struct {
	opts AnimatorOptions
	xs   [][]float64
	ys   [][]float64
}

// NewAnimator returns an Animator with no points.
func NewAnimator(opts AnimatorOptions) *Animator {
	if opts.Width <= 0 {
		opts.Width = 5 * vg.Inch
	}
	if opts.Height <= 0 {
		opts.Height = 3.5 * vg.Inch
	}
	return &Animator{opts: opts}
}

// Add appends the point (x, ys[i]) to series i and redraws. NaN values are
// skipped.
func (a *Animator) Add(x float64, ys ...float64) error {
	if a.xs == nil {
		a.xs = make([][]float64, len(ys))
		a.ys = make([][]float64, len(ys))
	}
	for i, y := range ys {
		if i >= len(a.ys) || math.IsNaN(y) || math.IsNaN(x) {
			continue
		}
		a.xs[i] = append(a.xs[i], x)
		a.ys[i] = append(a.ys[i], y)
	}
	return a.Render()
}

func (a *Animator) series(i int) (xs, ys []float64) {
	if i < 0 || i >= len(a.xs) {
		return nil, nil
	}
	return a.xs[i], a.ys[i]
}

// Render draws the current state to the configured path.
func (a *Animator) Render() error {
	if a.opts.Path == "" {
		return nil
	}
	p := plot.New()
	p.X.Label.Text = a.opts.XLabel
	p.Y.Label.Text = a.opts.YLabel
	p.Add(plotter.NewGrid())
	p.Legend.Top = true

	for i := range a.xs {
		if len(a.xs[i]) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(a.xs[i]))
		for j := range pts {
			pts[j].X = a.xs[i][j]
			pts[j].Y = a.ys[i][j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return errors.Wrapf(err, "series %d", i)
		}
		f := formats[i%len(formats)]
		line.LineStyle.Color = f.color
		line.LineStyle.Dashes = f.dashes
		line.LineStyle.Width = vg.Points(1.5)
		p.Add(line)
		if i < len(a.opts.Legend) {
			p.Legend.Add(a.opts.Legend[i], line)
		}
	}

	if a.opts.XLim.set() {
		p.X.Min, p.X.Max = a.opts.XLim.Min, a.opts.XLim.Max
	}
	if a.opts.YLim.set() {
		p.Y.Min, p.Y.Max = a.opts.YLim.Min, a.opts.YLim.Max
	}

	if err := os.MkdirAll(filepath.Dir(a.opts.Path), 0o755); err != nil {
		return errors.Wrap(err, "create plot dir")
	}
	if err := p.Save(a.opts.Width, a.opts.Height, a.opts.Path); err != nil {
		return errors.Wrapf(err, "save %s", a.opts.Path)
	}
	return nil
}
