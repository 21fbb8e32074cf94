package model

import (
	"errors"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrNoForward is returned by Backward when no training-mode Forward
// preceded it.
var ErrNoForward = errors.New("model: backward without cached forward pass")

// Param is a trainable tensor and its accumulated gradient.
type Param struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParam(name string, r, c int) *Param {
	return &Param{Name: name, Value: mat.NewDense(r, c, nil), Grad: mat.NewDense(r, c, nil)}
}

// Layer is one differentiable stage of a Sequential model.
type Layer interface {
	// Forward computes the output; cache keeps what Backward needs.
	Forward(x *mat.Dense, cache bool) *mat.Dense
	// Backward accumulates parameter gradients and returns dL/dx.
	Backward(dy *mat.Dense) (*mat.Dense, error)
	Params() []*Param
}

// Linear computes y = xW + b.
type Linear struct {
	W *Param
	B *Param
	x *mat.Dense
}

// NewLinear allocates a zero-initialised in x out layer.
func NewLinear(name string, in, out int) *Linear {
	return &Linear{W: newParam(name+".weight", in, out), B: newParam(name+".bias", 1, out)}
}

// InitNormal draws weights from N(0, std^2).
func (l *Linear) InitNormal(rng *rand.Rand, std float64) {
	data := l.W.Value.RawMatrix().Data
	for i := range data {
		data[i] = rng.NormFloat64() * std
	}
}

// InitXavierUniform draws weights from U(-a, a), a = sqrt(6/(in+out)).
func (l *Linear) InitXavierUniform(rng *rand.Rand) {
	in, out := l.W.Value.Dims()
	a := math.Sqrt(6 / float64(in+out))
	data := l.W.Value.RawMatrix().Data
	for i := range data {
		data[i] = (rng.Float64()*2 - 1) * a
	}
}

func (l *Linear) Forward(x *mat.Dense, cache bool) *mat.Dense {
	n, _ := x.Dims()
	_, out := l.W.Value.Dims()
	y := mat.NewDense(n, out, nil)
	y.Mul(x, l.W.Value)
	bias := l.B.Value.RawRowView(0)
	for i := 0; i < n; i++ {
		floats.Add(y.RawRowView(i), bias)
	}
	if cache {
		l.x = x
	} else {
		l.x = nil
	}
	return y
}

func (l *Linear) Backward(dy *mat.Dense) (*mat.Dense, error) {
	if l.x == nil {
		return nil, ErrNoForward
	}
	var dW mat.Dense
	dW.Mul(l.x.T(), dy)
	l.W.Grad.Add(l.W.Grad, &dW)

	gb := l.B.Grad.RawRowView(0)
	n, _ := dy.Dims()
	for i := 0; i < n; i++ {
		floats.Add(gb, dy.RawRowView(i))
	}

	in, _ := l.W.Value.Dims()
	dx := mat.NewDense(n, in, nil)
	dx.Mul(dy, l.W.Value.T())
	return dx, nil
}

func (l *Linear) Params() []*Param {
	return []*Param{l.W, l.B}
}

// ReLU zeroes negative activations.
type ReLU struct {
	x *mat.Dense
}

func (r *ReLU) Forward(x *mat.Dense, cache bool) *mat.Dense {
	n, c := x.Dims()
	y := mat.NewDense(n, c, nil)
	y.Apply(func(_, _ int, v float64) float64 {
		return math.Max(0, v)
	}, x)
	if cache {
		r.x = x
	} else {
		r.x = nil
	}
	return y
}

func (r *ReLU) Backward(dy *mat.Dense) (*mat.Dense, error) {
	if r.x == nil {
		return nil, ErrNoForward
	}
	n, c := dy.Dims()
	dx := mat.NewDense(n, c, nil)
	dx.Apply(func(i, j int, v float64) float64 {
		if r.x.At(i, j) <= 0 {
			return 0
		}
		return v
	}, dy)
	return dx, nil
}

func (r *ReLU) Params() []*Param {
	return nil
}

// Sequential chains layers and implements Model.
type Sequential struct {
	Layers   []Layer
	training bool
}

// NewSequential returns a model in training mode.
func NewSequential(layers ...Layer) *Sequential {
	return &Sequential{Layers: layers, training: true}
}

func (s *Sequential) SetTraining(training bool) {
	s.training = training
}

func (s *Sequential) Forward(x *mat.Dense) *mat.Dense {
	out := x
	for _, l := range s.Layers {
		out = l.Forward(out, s.training)
	}
	return out
}

func (s *Sequential) Backward(dLogits *mat.Dense) error {
	grad := dLogits
	for i := len(s.Layers) - 1; i >= 0; i-- {
		var err error
		grad, err = s.Layers[i].Backward(grad)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Sequential) Params() []*Param {
	var out []*Param
	for _, l := range s.Layers {
		out = append(out, l.Params()...)
	}
	return out
}
