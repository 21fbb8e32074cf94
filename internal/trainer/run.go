package trainer

import (
	"context"
	"image"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"fashion-mnist-trainer/internal/dataset"
	"fashion-mnist-trainer/internal/model"
	"fashion-mnist-trainer/internal/viz"
)

// ErrThreshold reports a final metric outside its accepted range.
var ErrThreshold = errors.New("trainer: metric outside threshold")

// RunConfig captures the knobs required by the training loop.
type RunConfig struct {
	Train *dataset.Set
	Test  *dataset.Set

	Model        string
	Hidden       int
	InitStd      float64
	Epochs       int
	BatchSize    int
	NumWorkers   int
	LearningRate float64
	Seed         int64
	LogEvery     int

	PlotDir      string
	PredictCount int
	Checkpoint   string

	MaxTrainLoss float64
	MinTrainAcc  float64
	MinTestAcc   float64

	Logger *log.Logger
}

// Result holds the metrics of the final epoch.
type Result struct {
	TrainLoss float64
	TrainAcc  float64
	TestAcc   float64
	Predict   Prediction
}

// Run executes the training workload.
func Run(ctx context.Context, cfg RunConfig) (Result, error) {
	if cfg.Train == nil || cfg.Test == nil {
		return Result{}, errors.New("trainer: train and test sets are required")
	}
	if cfg.Train.Features() != cfg.Test.Features() {
		return Result{}, errors.Errorf("trainer: train has %d features, test has %d", cfg.Train.Features(), cfg.Test.Features())
	}
	if cfg.Epochs <= 0 {
		return Result{}, errors.New("trainer: epochs must be > 0")
	}
	if cfg.BatchSize <= 0 {
		return Result{}, errors.New("trainer: batch size must be > 0")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	features := cfg.Train.Features()
	mdl, err := model.New(cfg.Model, features, cfg.Hidden, dataset.NumClasses, cfg.InitStd, cfg.Seed)
	if err != nil {
		return Result{}, err
	}
	tr := &Trainer{
		Model:    mdl,
		Updater:  model.SGD{LR: cfg.LearningRate},
		Features: features,
		LogEvery: cfg.LogEvery,
		Logger:   logger,
	}

	animator := viz.NewAnimator(viz.AnimatorOptions{
		Path:   plotPath(cfg.PlotDir, "training.png"),
		XLabel: "epoch",
		XLim:   viz.Range{Min: 1, Max: float64(cfg.Epochs)},
		YLim:   viz.Range{Min: 0.3, Max: 0.9},
		Legend: []string{"train loss", "train acc", "test acc"},
	})

	logger.Printf("model=%s features=%d batches_per_epoch=%d test_batches=%d",
		cfg.Model, features,
		dataset.NumBatches(cfg.Train.Len(), cfg.BatchSize),
		dataset.NumBatches(cfg.Test.Len(), cfg.BatchSize))

	var res Result
	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		res.TrainLoss, res.TrainAcc, err = runEpoch(ctx, tr, cfg, epoch)
		if err != nil {
			return res, err
		}
		res.TestAcc, err = evaluate(ctx, tr, cfg, cfg.Test)
		if err != nil {
			return res, err
		}
		logger.Printf("epoch=%d train_loss=%.4f train_acc=%.4f test_acc=%.4f",
			epoch, res.TrainLoss, res.TrainAcc, res.TestAcc)
		if err := animator.Add(float64(epoch), res.TrainLoss, res.TrainAcc, res.TestAcc); err != nil {
			return res, errors.Wrap(err, "plot progress")
		}
	}

	if cfg.Checkpoint != "" {
		if err := saveCheckpoint(cfg.Checkpoint, mdl); err != nil {
			return res, err
		}
		logger.Printf("checkpoint=%s", cfg.Checkpoint)
	}

	if err := CheckThresholds(res, cfg.MaxTrainLoss, cfg.MinTrainAcc, cfg.MinTestAcc); err != nil {
		return res, err
	}

	res.Predict, err = predict(ctx, tr, cfg)
	if err != nil {
		return res, err
	}
	logger.Printf("ac:%.3f", res.Predict.Accuracy)
	if err := plotPredictions(cfg, res.Predict); err != nil {
		return res, err
	}
	return res, nil
}

// CheckThresholds verifies the final metrics: loss below maxLoss, and each
// accuracy above its minimum and at most 1.
func CheckThresholds(res Result, maxLoss, minTrainAcc, minTestAcc float64) error {
	if !(res.TrainLoss < maxLoss) {
		return errors.Wrapf(ErrThreshold, "train_loss %.4f not below %.4f", res.TrainLoss, maxLoss)
	}
	if !(res.TrainAcc > minTrainAcc && res.TrainAcc <= 1) {
		return errors.Wrapf(ErrThreshold, "train_acc %.4f not in (%.4f, 1]", res.TrainAcc, minTrainAcc)
	}
	if !(res.TestAcc > minTestAcc && res.TestAcc <= 1) {
		return errors.Wrapf(ErrThreshold, "test_acc %.4f not in (%.4f, 1]", res.TestAcc, minTestAcc)
	}
	return nil
}

func runEpoch(parent context.Context, tr *Trainer, cfg RunConfig, epoch int) (float64, float64, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	batches, err := dataset.StartLoader(ctx, dataset.LoaderOptions{
		Set:        cfg.Train,
		BatchSize:  cfg.BatchSize,
		Shuffle:    true,
		Seed:       cfg.Seed + int64(epoch),
		NumWorkers: cfg.NumWorkers,
	})
	if err != nil {
		return 0, 0, err
	}
	return tr.TrainEpoch(ctx, epoch, batches)
}

func evaluate(parent context.Context, tr *Trainer, cfg RunConfig, set *dataset.Set) (float64, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	batches, err := dataset.StartLoader(ctx, dataset.LoaderOptions{
		Set:        set,
		BatchSize:  cfg.BatchSize,
		NumWorkers: cfg.NumWorkers,
	})
	if err != nil {
		return 0, err
	}
	return tr.EvaluateAccuracy(ctx, batches)
}

func predict(parent context.Context, tr *Trainer, cfg RunConfig) (Prediction, error) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	batches, err := dataset.StartLoader(ctx, dataset.LoaderOptions{
		Set:        cfg.Test,
		BatchSize:  cfg.BatchSize,
		NumWorkers: 1,
	})
	if err != nil {
		return Prediction{}, err
	}
	return tr.Predict(ctx, batches, cfg.PredictCount)
}

func plotPredictions(cfg RunConfig, p Prediction) error {
	path := plotPath(cfg.PlotDir, "predictions.png")
	if path == "" || len(p.Samples) == 0 {
		return nil
	}
	cols := min(len(p.Samples), 9)
	rows := (len(p.Samples) + cols - 1) / cols
	imgs := make([]image.Image, len(p.Samples))
	titles := make([]string, len(p.Samples))
	for i, s := range p.Samples {
		imgs[i] = viz.GrayImage(s.Pixels, cfg.Test.Rows, cfg.Test.Cols)
		titles[i] = s.Title()
	}
	if err := viz.ShowImages(path, imgs, rows, cols, titles, 1.5); err != nil {
		return errors.Wrap(err, "plot predictions")
	}
	return nil
}

func plotPath(dir, name string) string {
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, name)
}

func saveCheckpoint(path string, m model.Model) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create checkpoint dir")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create checkpoint")
	}
	defer f.Close()
	if err := model.Save(f, m); err != nil {
		return err
	}
	return f.Close()
}
