package model

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Batch represents a minibatch of features and labels. Inputs has one row
// per example.
type Batch struct {
	Inputs *mat.Dense
	Labels []int
}

// NewBatch wraps flattened images as an n x features matrix without copying.
func NewBatch(images []float64, labels []int, features int) Batch {
	return Batch{Inputs: mat.NewDense(len(labels), features, images), Labels: labels}
}

// Size returns the number of examples in the batch.
func (b Batch) Size() int {
	return len(b.Labels)
}

// Model is a differentiable classifier mapping inputs to logits.
type Model interface {
	Forward(x *mat.Dense) *mat.Dense
	Backward(dLogits *mat.Dense) error
	Params() []*Param
	SetTraining(training bool)
}

// Kinds of model accepted by New.
const (
	KindMLP     = "mlp"
	KindSoftmax = "softmax"
)

// New builds a model by kind. hidden and std only apply to the MLP.
func New(kind string, in, hidden, out int, std float64, seed int64) (Model, error) {
	rng := rand.New(rand.NewSource(seed))
	switch kind {
	case KindMLP:
		return NewMLP(in, hidden, out, std, rng), nil
	case KindSoftmax:
		return NewSoftmaxRegression(in, out, rng), nil
	default:
		return nil, fmt.Errorf("model: unknown kind %q", kind)
	}
}

// NewMLP returns Linear(in,hidden) -> ReLU -> Linear(hidden,out) with weights
// drawn from N(0, std^2) and zero biases.
func NewMLP(in, hidden, out int, std float64, rng *rand.Rand) *Sequential {
	l1 := NewLinear("hidden", in, hidden)
	l1.InitNormal(rng, std)
	l2 := NewLinear("output", hidden, out)
	l2.InitNormal(rng, std)
	return NewSequential(l1, &ReLU{}, l2)
}

// NewSoftmaxRegression returns a single Xavier-initialised linear layer.
// Softmax is folded into the loss.
func NewSoftmaxRegression(in, out int, rng *rand.Rand) *Sequential {
	l := NewLinear("linear", in, out)
	l.InitXavierUniform(rng)
	return NewSequential(l)
}

// Predict returns the most probable class of every row of x.
func Predict(m Model, x *mat.Dense) []int {
	return Argmax(Softmax(m.Forward(x)))
}
