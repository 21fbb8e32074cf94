package metrics

import "testing"

func TestAccumulatorAddReset(t *testing.T) {
	acc := NewAccumulator(3)
	acc.Add(1.5, 2, 4)
	acc.Add(0.5, 1, 4)
	if acc.At(0) != 2 || acc.At(1) != 3 || acc.At(2) != 8 {
		t.Fatalf("unexpected sums %v %v %v", acc.At(0), acc.At(1), acc.At(2))
	}
	if got := acc.Ratio(1, 2); got != 0.375 {
		t.Fatalf("ratio=%f want 0.375", got)
	}
	acc.Reset()
	for i := 0; i < acc.Len(); i++ {
		if acc.At(i) != 0 {
			t.Fatalf("sum %d not reset: %f", i, acc.At(i))
		}
	}
}

func TestAccumulatorShortAndLongAdds(t *testing.T) {
	acc := NewAccumulator(2)
	acc.Add(1)
	acc.Add(1, 2, 3)
	if acc.At(0) != 2 || acc.At(1) != 2 {
		t.Fatalf("unexpected sums %v %v", acc.At(0), acc.At(1))
	}
}

func TestAccumulatorRatioZeroDenominator(t *testing.T) {
	acc := NewAccumulator(2)
	acc.Add(5)
	if got := acc.Ratio(0, 1); got != 0 {
		t.Fatalf("expected 0, got %f", got)
	}
}
