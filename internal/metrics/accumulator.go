package metrics

// Accumulator keeps running sums over a fixed number of variables.
type Accumulator struct {
	data []float64
}

// NewAccumulator returns an Accumulator tracking n sums.
func NewAccumulator(n int) *Accumulator {
	if n < 0 {
		n = 0
	}
	return &Accumulator{data: make([]float64, n)}
}

// Add adds values position-wise. Extra values are ignored.
func (a *Accumulator) Add(values ...float64) {
	for i, v := range values {
		if i >= len(a.data) {
			break
		}
		a.data[i] += v
	}
}

// Reset zeroes every sum.
func (a *Accumulator) Reset() {
	for i := range a.data {
		a.data[i] = 0
	}
}

// At returns the i-th sum.
func (a *Accumulator) At(i int) float64 {
	return a.data[i]
}

// Len returns the number of tracked sums.
func (a *Accumulator) Len() int {
	return len(a.data)
}

// Ratio returns At(num)/At(den), or 0 when the denominator is zero.
func (a *Accumulator) Ratio(num, den int) float64 {
	d := a.data[den]
	if d == 0 {
		return 0
	}
	return a.data[num] / d
}
