package model

import "gonum.org/v1/gonum/floats"

// SGD is plain minibatch stochastic gradient descent.
type SGD struct {
	LR float64
}

// ZeroGrad clears the accumulated gradients.
func (o SGD) ZeroGrad(params []*Param) {
	for _, p := range params {
		p.Grad.Zero()
	}
}

// Step applies value -= LR * grad to every parameter.
func (o SGD) Step(params []*Param) {
	for _, p := range params {
		floats.AddScaled(p.Value.RawMatrix().Data, -o.LR, p.Grad.RawMatrix().Data)
	}
}
