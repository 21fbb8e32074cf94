package model

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Softmax returns row-wise probabilities. Rows are shifted by their maximum
// before exponentiation.
func Softmax(logits *mat.Dense) *mat.Dense {
	n, c := logits.Dims()
	out := mat.NewDense(n, c, nil)
	for i := 0; i < n; i++ {
		row := out.RawRowView(i)
		copy(row, logits.RawRowView(i))
		m := floats.Max(row)
		for j := range row {
			row[j] = math.Exp(row[j] - m)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return out
}

// Argmax returns the column index of the largest value in each row.
func Argmax(m *mat.Dense) []int {
	n, _ := m.Dims()
	out := make([]int, n)
	for i := 0; i < n; i++ {
		out[i] = floats.MaxIdx(m.RawRowView(i))
	}
	return out
}

// CrossEntropy returns the per-example softmax cross-entropy of logits
// against labels, and the gradient of the mean loss with respect to logits.
func CrossEntropy(logits *mat.Dense, labels []int) ([]float64, *mat.Dense) {
	n, c := logits.Dims()
	losses := make([]float64, n)
	grad := mat.NewDense(n, c, nil)
	if n == 0 {
		return losses, grad
	}
	inv := 1 / float64(n)
	for i := 0; i < n; i++ {
		row := logits.RawRowView(i)
		lse := floats.LogSumExp(row)
		losses[i] = lse - row[labels[i]]

		g := grad.RawRowView(i)
		for j, v := range row {
			g[j] = math.Exp(v-lse) * inv
		}
		g[labels[i]] -= inv
	}
	return losses, grad
}

// Accuracy returns the number of rows whose argmax equals the label.
func Accuracy(logits *mat.Dense, labels []int) float64 {
	correct := 0
	for i, p := range Argmax(logits) {
		if p == labels[i] {
			correct++
		}
	}
	return float64(correct)
}
