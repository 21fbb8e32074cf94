package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFillsDefaults(t *testing.T) {
	path := writeConfig(t, "epochs: 3\nmodel: softmax\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Epochs != 3 || cfg.Model != "softmax" {
		t.Fatalf("unexpected values: %+v", cfg)
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Fatalf("expected default batch size, got %d", cfg.BatchSize)
	}
	if cfg.LearningRate != DefaultLearningRate {
		t.Fatalf("expected default learning rate, got %g", cfg.LearningRate)
	}
	if !cfg.ShouldDownload() {
		t.Fatalf("download should default to true")
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DataDir != DefaultDataDir {
		t.Fatalf("unexpected data dir %q", cfg.DataDir)
	}
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := writeConfig(t, "epochz: 3\n")
	if _, err := Load(path); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestValidateErrors(t *testing.T) {
	cases := map[string]func(c *Config){
		"epochs":        func(c *Config) { c.Epochs = 0 },
		"batch_size":    func(c *Config) { c.BatchSize = -1 },
		"learning_rate": func(c *Config) { c.LearningRate = 0 },
		"model":         func(c *Config) { c.Model = "cnn" },
		"hidden":        func(c *Config) { c.Hidden = 0 },
		"min_test_acc":  func(c *Config) { c.MinTestAcc = 1.5 },
	}
	for field, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		err := cfg.Validate()
		if err == nil {
			t.Fatalf("%s: expected validation error", field)
		}
		if !strings.Contains(err.Error(), field) {
			t.Fatalf("%s: error %q does not name the field", field, err)
		}
	}
}

func TestValidateDefaultsWorkers(t *testing.T) {
	cfg := Default()
	cfg.NumWorkers = 0
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.NumWorkers <= 0 {
		t.Fatalf("expected positive worker count, got %d", cfg.NumWorkers)
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{Epochs: 9, Model: "softmax", NoDownload: true, Seed: 11})
	if cfg.Epochs != 9 || cfg.Model != "softmax" || cfg.Seed != 11 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.ShouldDownload() {
		t.Fatal("expected download to be disabled")
	}
	if cfg.BatchSize != DefaultBatchSize {
		t.Fatalf("zero override changed batch size to %d", cfg.BatchSize)
	}
}
