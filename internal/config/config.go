package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/cpuid/v2"
	"gopkg.in/yaml.v3"
)

// Default values used when the config file leaves a field unset.
const (
	DefaultDataDir      = "./data_fashion_mnist"
	DefaultBaseURL      = "http://fashion-mnist.s3-website.eu-central-1.amazonaws.com/"
	DefaultEpochs       = 5
	DefaultBatchSize    = 256
	DefaultNumWorkers   = 4
	DefaultLearningRate = 0.1
	DefaultModel        = "mlp"
	DefaultHidden       = 256
	DefaultInitStd      = 0.01
	DefaultLogEvery     = 50
	DefaultPlotDir      = "plots"
	DefaultPredictCount = 18
)

// Config captures the runtime knobs for a training run.
type Config struct {
	DataDir      string  `yaml:"data_dir"`
	BaseURL      string  `yaml:"base_url"`
	Download     *bool   `yaml:"download"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	NumWorkers   int     `yaml:"num_workers"`
	LearningRate float64 `yaml:"learning_rate"`
	Model        string  `yaml:"model"`
	Hidden       int     `yaml:"hidden"`
	InitStd      float64 `yaml:"init_std"`
	Resize       int     `yaml:"resize"`
	Seed         int64   `yaml:"seed"`
	LogEvery     int     `yaml:"log_every"`
	PlotDir      string  `yaml:"plot_dir"`
	PredictCount int     `yaml:"predict_count"`
	MaxTrainLoss float64 `yaml:"max_train_loss"`
	MinTrainAcc  float64 `yaml:"min_train_acc"`
	MinTestAcc   float64 `yaml:"min_test_acc"`
	Checkpoint   string  `yaml:"checkpoint"`
}

// Overrides captures CLI supplied values.
type Overrides struct {
	DataDir      string
	Epochs       int
	BatchSize    int
	NumWorkers   int
	LearningRate float64
	Model        string
	Seed         int64
	LogEvery     int
	PlotDir      string
	Checkpoint   string
	NoDownload   bool
}

// Default returns a Config populated with the stock hyperparameters.
func Default() *Config {
	download := true
	return &Config{
		DataDir:      DefaultDataDir,
		BaseURL:      DefaultBaseURL,
		Download:     &download,
		Epochs:       DefaultEpochs,
		BatchSize:    DefaultBatchSize,
		NumWorkers:   DefaultNumWorkers,
		LearningRate: DefaultLearningRate,
		Model:        DefaultModel,
		Hidden:       DefaultHidden,
		InitStd:      DefaultInitStd,
		LogEvery:     DefaultLogEvery,
		PlotDir:      DefaultPlotDir,
		PredictCount: DefaultPredictCount,
		MaxTrainLoss: 0.5,
		MinTrainAcc:  0.7,
		MinTestAcc:   0.7,
	}
}

// Load reads a Config from YAML on top of Default and validates it.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := parseYAML(f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DataDir != "" {
		c.DataDir = o.DataDir
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.NumWorkers > 0 {
		c.NumWorkers = o.NumWorkers
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.Model != "" {
		c.Model = o.Model
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.PlotDir != "" {
		c.PlotDir = o.PlotDir
	}
	if o.Checkpoint != "" {
		c.Checkpoint = o.Checkpoint
	}
	if o.NoDownload {
		off := false
		c.Download = &off
	}
}

// ShouldDownload reports whether missing dataset files may be fetched.
func (c *Config) ShouldDownload() bool {
	return c.Download == nil || *c.Download
}

// Validate verifies the config is runnable, filling defaults for optional fields.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DataDir == "" {
		return errors.New("data_dir must be set")
	}
	if c.Epochs <= 0 {
		return fmt.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	switch c.Model {
	case "mlp":
		if c.Hidden <= 0 {
			return fmt.Errorf("hidden must be > 0 for mlp (got %d)", c.Hidden)
		}
	case "softmax":
	default:
		return fmt.Errorf("model must be mlp or softmax (got %q)", c.Model)
	}
	if c.Resize < 0 {
		return fmt.Errorf("resize must be >= 0 (got %d)", c.Resize)
	}
	if c.MinTrainAcc < 0 || c.MinTrainAcc > 1 {
		return fmt.Errorf("min_train_acc must be within [0,1] (got %g)", c.MinTrainAcc)
	}
	if c.MinTestAcc < 0 || c.MinTestAcc > 1 {
		return fmt.Errorf("min_test_acc must be within [0,1] (got %g)", c.MinTestAcc)
	}
	if c.NumWorkers <= 0 {
		c.NumWorkers = defaultWorkers()
	}
	if c.InitStd <= 0 {
		c.InitStd = DefaultInitStd
	}
	if c.LogEvery <= 0 {
		c.LogEvery = DefaultLogEvery
	}
	if c.PredictCount < 0 {
		c.PredictCount = 0
	}
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	return nil
}

func defaultWorkers() int {
	if n := cpuid.CPU.PhysicalCores; n > 0 {
		return n
	}
	return DefaultNumWorkers
}

func parseYAML(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if len(bytes.TrimSpace(raw)) == 0 {
		return cfg, nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
