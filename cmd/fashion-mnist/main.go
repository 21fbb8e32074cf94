package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/klauspost/cpuid/v2"

	"fashion-mnist-trainer/internal/config"
	"fashion-mnist-trainer/internal/dataset"
	"fashion-mnist-trainer/internal/trainer"
)

func main() {
	cfgPath := flag.String("config", "", "Path to YAML config (defaults are used when empty)")
	dataDir := flag.String("data-dir", "", "Override dataset directory")
	epochs := flag.Int("epochs", 0, "Number of training epochs")
	batchSize := flag.Int("batch-size", 0, "Batch size")
	numWorkers := flag.Int("num-workers", 0, "Number of data loader workers")
	lr := flag.Float64("lr", 0, "Learning rate")
	modelKind := flag.String("model", "", "Model kind: mlp or softmax")
	seed := flag.Int64("seed", 0, "PRNG seed")
	logEvery := flag.Int("log-every", 0, "Log every N steps")
	plotDir := flag.String("plot-dir", "", "Directory for PNG plots")
	checkpoint := flag.String("checkpoint", "", "Write trained parameters to this path")
	noDownload := flag.Bool("no-download", false, "Fail instead of downloading missing dataset files")

	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	cfg.ApplyOverrides(config.Overrides{
		DataDir:      *dataDir,
		Epochs:       *epochs,
		BatchSize:    *batchSize,
		NumWorkers:   *numWorkers,
		LearningRate: *lr,
		Model:        *modelKind,
		Seed:         *seed,
		LogEvery:     *logEvery,
		PlotDir:      *plotDir,
		Checkpoint:   *checkpoint,
		NoDownload:   *noDownload,
	})

	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	logger := log.New(os.Stderr, "run="+uuid.NewString()+" ", log.LstdFlags)
	logger.Printf("cpu=%q physical_cores=%d workers=%d", cpuid.CPU.BrandName, cpuid.CPU.PhysicalCores, cfg.NumWorkers)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.ShouldDownload() {
		if err := dataset.Download(ctx, cfg.DataDir, cfg.BaseURL); err != nil {
			logger.Fatalf("download dataset: %v", err)
		}
	} else {
		found, err := dataset.Discover(cfg.DataDir)
		if err != nil {
			logger.Fatalf("discover dataset: %v", err)
		}
		if missing := dataset.Missing(found); len(missing) > 0 {
			logger.Fatalf("download disabled and %d archives missing under %s: %v", len(missing), cfg.DataDir, missing)
		}
	}

	train, err := dataset.Load(cfg.DataDir, true, cfg.Resize)
	if err != nil {
		logger.Fatalf("load train set: %v", err)
	}
	test, err := dataset.Load(cfg.DataDir, false, cfg.Resize)
	if err != nil {
		logger.Fatalf("load test set: %v", err)
	}
	logger.Printf("train=%d test=%d image=%dx%d", train.Len(), test.Len(), train.Rows, train.Cols)

	runCfg := trainer.RunConfig{
		Train:        train,
		Test:         test,
		Model:        cfg.Model,
		Hidden:       cfg.Hidden,
		InitStd:      cfg.InitStd,
		Epochs:       cfg.Epochs,
		BatchSize:    cfg.BatchSize,
		NumWorkers:   cfg.NumWorkers,
		LearningRate: cfg.LearningRate,
		Seed:         cfg.Seed,
		LogEvery:     cfg.LogEvery,
		PlotDir:      cfg.PlotDir,
		PredictCount: cfg.PredictCount,
		Checkpoint:   cfg.Checkpoint,
		MaxTrainLoss: cfg.MaxTrainLoss,
		MinTrainAcc:  cfg.MinTrainAcc,
		MinTestAcc:   cfg.MinTestAcc,
		Logger:       logger,
	}

	if _, err := trainer.Run(ctx, runCfg); err != nil {
		logger.Fatalf("training failed: %v", err)
	}
}
