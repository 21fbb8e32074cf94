package trainer

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"fashion-mnist-trainer/internal/dataset"
	"fashion-mnist-trainer/internal/metrics"
	"fashion-mnist-trainer/internal/model"
)

// Updater applies accumulated gradients to parameters.
type Updater interface {
	ZeroGrad(params []*model.Param)
	Step(params []*model.Param)
}

// Trainer runs epochs of a model over streamed batches.
type Trainer struct {
	Model    model.Model
	Updater  Updater
	Features int
	LogEvery int
	Logger   *log.Logger
}

func (t *Trainer) logger() *log.Logger {
	if t.Logger == nil {
		t.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	return t.Logger
}

// TrainEpoch consumes batches until the channel closes, taking one optimizer
// step per batch. It returns the mean per-example loss and the accuracy.
func (t *Trainer) TrainEpoch(ctx context.Context, epoch int, batches <-chan dataset.Batch) (float64, float64, error) {
	t.Model.SetTraining(true)
	params := t.Model.Params()
	// sum of losses, correct predictions, examples
	metric := metrics.NewAccumulator(3)
	var window metrics.Window

	step := 0
	for {
		startData := time.Now()
		b, ok := <-batches
		if !ok {
			break
		}
		dataTime := time.Since(startData)
		step++

		startCompute := time.Now()
		mb := model.NewBatch(b.Images, b.Labels, t.Features)
		logits := t.Model.Forward(mb.Inputs)
		losses, grad := model.CrossEntropy(logits, mb.Labels)
		t.Updater.ZeroGrad(params)
		if err := t.Model.Backward(grad); err != nil {
			return 0, 0, errors.Wrapf(err, "epoch %d step %d", epoch, step)
		}
		t.Updater.Step(params)
		lossSum := floats.Sum(losses)
		metric.Add(lossSum, model.Accuracy(logits, mb.Labels), float64(mb.Size()))
		computeTime := time.Since(startCompute)

		window.Record(mb.Size(), dataTime, computeTime, lossSum/float64(mb.Size()))
		if t.LogEvery > 0 && step%t.LogEvery == 0 {
			snap := window.Snapshot()
			t.logger().Printf("epoch=%d step=%d images_per_sec=%.1f data_ms=%.2f compute_ms=%.2f loss=%.4f",
				epoch,
				step,
				snap.ImagesPerSec,
				snap.AvgDataMS,
				snap.AvgComputeMS,
				snap.LastLoss,
			)
		}
	}
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	if metric.At(2) == 0 {
		return 0, 0, fmt.Errorf("epoch %d: no training examples", epoch)
	}
	return metric.Ratio(0, 2), metric.Ratio(1, 2), nil
}

// EvaluateAccuracy returns the fraction of correctly classified examples
// without updating the model.
func (t *Trainer) EvaluateAccuracy(ctx context.Context, batches <-chan dataset.Batch) (float64, error) {
	t.Model.SetTraining(false)
	// correct predictions, examples
	metric := metrics.NewAccumulator(2)
	for b := range batches {
		mb := model.NewBatch(b.Images, b.Labels, t.Features)
		metric.Add(model.Accuracy(t.Model.Forward(mb.Inputs), mb.Labels), float64(mb.Size()))
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return metric.Ratio(0, 1), nil
}
