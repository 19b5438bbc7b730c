package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// TestDefaultConfig verifies the default values
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.SamplingFreq != 0.5 {
		t.Errorf("Expected sampling frequency 0.5, got %f", cfg.SamplingFreq)
	}

	if cfg.Processing.NumWorkers != runtime.NumCPU() {
		t.Errorf("Expected %d workers, got %d", runtime.NumCPU(), cfg.Processing.NumWorkers)
	}

	if !cfg.Append.KeepSeparate {
		t.Error("Expected trends to be kept separate by default")
	}

	if cfg.Clean.Threshold != 0.95 {
		t.Errorf("Expected clean threshold 0.95, got %f", cfg.Clean.Threshold)
	}

	// No runs configured yet
	if err := cfg.Validate(); err == nil {
		t.Error("Expected validation error for config without runs, got nil")
	}
}

// TestLoadConfigMissingFile verifies that defaults are returned for a missing file
func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Design.HRF != "glover" {
		t.Errorf("Expected default hrf glover, got %s", cfg.Design.HRF)
	}
}

// TestSaveAndLoadConfig verifies a round trip through YAML
func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	if err := CreateDefaultConfigFile(path); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if len(cfg.Runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(cfg.Runs))
	}

	want := filepath.Join(dir, "nested", "run-1_events.csv")
	if cfg.Runs[0].Events != want {
		t.Errorf("Expected events path %s, got %s", want, cfg.Runs[0].Events)
	}

	if cfg.Runs[0].Length != 200 {
		t.Errorf("Expected run length 200, got %d", cfg.Runs[0].Length)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

// TestLoadConfigOverrides verifies that YAML values replace defaults
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`samplingFreq: 1
runs:
  - name: a
    design: /data/a.csv
design:
  hrf: spm
  polyOrder: 1
append:
  keepSeparate: false
  uniqueCols: ["face*"]
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.SamplingFreq != 1 {
		t.Errorf("Expected sampling frequency 1, got %f", cfg.SamplingFreq)
	}

	if cfg.Runs[0].Design != "/data/a.csv" {
		t.Errorf("Expected absolute design path to be kept, got %s", cfg.Runs[0].Design)
	}

	if cfg.Design.HRF != "spm" || cfg.Design.PolyOrder != 1 {
		t.Errorf("Expected spm with order 1, got %s with order %d", cfg.Design.HRF, cfg.Design.PolyOrder)
	}

	if cfg.Append.KeepSeparate {
		t.Error("Expected keepSeparate false")
	}

	// Values not in the file keep their defaults
	if cfg.Clean.Threshold != 0.95 {
		t.Errorf("Expected default clean threshold, got %f", cfg.Clean.Threshold)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

// TestValidate covers the run checks
func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		run  RunConfig
	}{
		{"both files", RunConfig{Events: "e.csv", Design: "d.csv", Length: 10}},
		{"no files", RunConfig{}},
		{"events without length", RunConfig{Events: "e.csv"}},
	}

	for _, tc := range cases {
		cfg := DefaultConfig()
		cfg.Runs = []RunConfig{tc.run}
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error, got nil", tc.name)
		}
	}

	cfg := DefaultConfig()
	cfg.Runs = []RunConfig{{Design: "d.csv"}}
	cfg.Clean.Threshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("Expected error for clean threshold above 1, got nil")
	}
}
