// Package config provides configuration loading and management for designmat.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// RunConfig describes one scanning run. Exactly one of Events and Design
// is set.
type RunConfig struct {
	// Name identifies the run in logs and stored records
	Name string `yaml:"name"`

	// Events is a CSV file of Onset, Duration, Stim (and optional Weight)
	Events string `yaml:"events,omitempty"`

	// Design is a CSV file holding an already built design matrix
	Design string `yaml:"design,omitempty"`

	// Length is the number of volumes in the run; required with Events
	Length int `yaml:"length,omitempty"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// SamplingFreq is the acquisition rate in Hz (1/TR)
	SamplingFreq float64 `yaml:"samplingFreq"`

	// Runs are built independently and stacked in order
	Runs []RunConfig `yaml:"runs"`

	// Design construction parameters
	Design struct {
		// HRF names the convolution kernel: glover, spm, glover+derivative,
		// spm+derivative, spm+derivative+dispersion, or none
		HRF string `yaml:"hrf"`

		// ConvolveColumns limits convolution to these columns; empty means all
		// non-trend columns
		ConvolveColumns []string `yaml:"convolveColumns,omitempty"`

		// UseWeights applies event weights when building from onsets
		UseWeights bool `yaml:"useWeights"`

		// PolyOrder adds Legendre trends up to this degree; negative disables
		PolyOrder int `yaml:"polyOrder"`

		// DCTDuration is the cosine high-pass cutoff in seconds; 0 disables
		DCTDuration float64 `yaml:"dctDuration"`

		// DCTDrop omits the first cosine basis functions
		DCTDrop int `yaml:"dctDrop"`

		// ZScore lists columns to standardize per run
		ZScore []string `yaml:"zscore,omitempty"`
	} `yaml:"design"`

	// Clean parameters, applied to each run
	Clean struct {
		// Enabled turns cleaning on
		Enabled bool `yaml:"enabled"`

		// Threshold is the absolute correlation above which a column is dropped
		Threshold float64 `yaml:"threshold"`

		// ExcludePolys never drops trend columns
		ExcludePolys bool `yaml:"excludePolys"`
	} `yaml:"clean"`

	// Append parameters for stacking runs
	Append struct {
		// KeepSeparate keeps trend columns run specific
		KeepSeparate bool `yaml:"keepSeparate"`

		// UniqueCols lists columns, or prefixes ending in '*', kept run specific
		UniqueCols []string `yaml:"uniqueCols,omitempty"`

		// FillNA fills cells of columns a run does not have
		FillNA float64 `yaml:"fillNA"`
	} `yaml:"append"`

	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many runs are built in parallel
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// CSV is the path of the stacked design matrix
		CSV string `yaml:"csv"`

		// Heatmap is an optional PNG rendering of the result
		Heatmap string `yaml:"heatmap,omitempty"`

		// Database is an optional SQLite file the result is saved to
		Database string `yaml:"database,omitempty"`

		// Name is the record name used in the database
		Name string `yaml:"name"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.SamplingFreq = 0.5

	// Set default design parameters
	cfg.Design.HRF = "glover"
	cfg.Design.PolyOrder = 2
	cfg.Design.DCTDuration = 0

	// Set default clean parameters
	cfg.Clean.Enabled = true
	cfg.Clean.Threshold = 0.95
	cfg.Clean.ExcludePolys = true

	// Set default append parameters
	cfg.Append.KeepSeparate = true

	// Set default processing parameters
	cfg.Processing.NumWorkers = runtime.NumCPU() // Use all available cores by default

	// Set default output parameters
	cfg.Output.CSV = "design.csv"
	cfg.Output.Name = "design"
	cfg.Output.Verbose = false

	return cfg
}

// Validate checks that the configuration describes a buildable design
func (c *Config) Validate() error {
	if !(c.SamplingFreq > 0) {
		return fmt.Errorf("samplingFreq must be positive, got %v", c.SamplingFreq)
	}
	if len(c.Runs) == 0 {
		return fmt.Errorf("no runs configured")
	}
	for i, r := range c.Runs {
		switch {
		case r.Events != "" && r.Design != "":
			return fmt.Errorf("run %d: set either events or design, not both", i)
		case r.Events == "" && r.Design == "":
			return fmt.Errorf("run %d: events or design file required", i)
		case r.Events != "" && r.Length <= 0:
			return fmt.Errorf("run %d: length must be positive when building from events", i)
		}
	}
	if c.Clean.Enabled && (c.Clean.Threshold <= 0 || c.Clean.Threshold > 1) {
		return fmt.Errorf("clean threshold must be in (0, 1], got %v", c.Clean.Threshold)
	}
	if c.Design.DCTDuration < 0 || c.Design.DCTDrop < 0 {
		return fmt.Errorf("dct parameters must be non-negative")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Relative run files are resolved against the config file's directory
	base := filepath.Dir(configPath)
	for i := range cfg.Runs {
		cfg.Runs[i].Events = resolve(base, cfg.Runs[i].Events)
		cfg.Runs[i].Design = resolve(base, cfg.Runs[i].Design)
	}

	return cfg, nil
}

func resolve(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	cfg.Runs = []RunConfig{
		{Name: "run-1", Events: "run-1_events.csv", Length: 200},
	}
	return SaveConfig(cfg, configPath)
}
