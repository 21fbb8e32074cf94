package trainer

import (
	"context"

	"github.com/pkg/errors"

	"fashion-mnist-trainer/internal/dataset"
	"fashion-mnist-trainer/internal/model"
)

// Sample is one predicted example kept for display.
type Sample struct {
	Pixels []float64
	True   string
	Pred   string
}

// Title returns the two-line caption used in prediction grids.
func (s Sample) Title() string {
	return s.True + "\n" + s.Pred
}

// Prediction summarises predictions over a single batch.
type Prediction struct {
	Accuracy float64
	Samples  []Sample
}

// Predict classifies the first batch from batches and keeps up to n samples.
// The caller cancels the loader to release the remaining batches.
func (t *Trainer) Predict(ctx context.Context, batches <-chan dataset.Batch, n int) (Prediction, error) {
	t.Model.SetTraining(false)
	b, ok := <-batches
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if !ok || b.Size == 0 {
		return Prediction{}, errors.New("predict: no batch available")
	}

	mb := model.NewBatch(b.Images, b.Labels, t.Features)
	trues := dataset.TextLabels(mb.Labels)
	preds := dataset.TextLabels(model.Predict(t.Model, mb.Inputs))

	correct := 0
	for i := range trues {
		if trues[i] == preds[i] {
			correct++
		}
	}
	out := Prediction{Accuracy: float64(correct) / float64(len(trues))}
	if n > b.Size {
		n = b.Size
	}
	for i := 0; i < n; i++ {
		out.Samples = append(out.Samples, Sample{
			Pixels: b.Images[i*t.Features : (i+1)*t.Features],
			True:   trues[i],
			Pred:   preds[i],
		})
	}
	return out, nil
}
