// Package config provides configuration loading and management for cubetool.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumCores is the number of slices rasterized concurrently
		NumCores int `yaml:"numCores"`

		// MultiplyByTwo restores VIRTUOS dose cubes stored at half their value
		MultiplyByTwo bool `yaml:"multiplyByTwo"`

		// DVHBins is the number of per-mille dose bins of a histogram
		DVHBins int `yaml:"dvhBins"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// ByteOrder of written data files: vms (little endian) or aix (big endian)
		ByteOrder string `yaml:"byteOrder"`

		// Gzip compresses written header and data files
		Gzip bool `yaml:"gzip"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Slice image export parameters
	Slices struct {
		// Format is the image format, jpg or png
		Format string `yaml:"format"`

		// WindowMin and WindowMax map voxel values to black and white
		WindowMin float64 `yaml:"windowMin"`
		WindowMax float64 `yaml:"windowMax"`
	} `yaml:"slices"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumCores = runtime.NumCPU()
	cfg.Processing.MultiplyByTwo = false
	cfg.Processing.DVHBins = 1500

	cfg.Output.ByteOrder = "vms"
	cfg.Output.Gzip = false
	cfg.Output.Verbose = false

	// CT soft tissue window
	cfg.Slices.Format = "png"
	cfg.Slices.WindowMin = -160
	cfg.Slices.WindowMax = 240

	return cfg
}

// Validate checks values that cannot be used as given.
func (c *Config) Validate() error {
	if c.Processing.NumCores < 1 {
		return fmt.Errorf("numCores must be at least 1, got %d", c.Processing.NumCores)
	}
	if c.Processing.DVHBins < 1 {
		return fmt.Errorf("dvhBins must be at least 1, got %d", c.Processing.DVHBins)
	}
	switch c.Output.ByteOrder {
	case "vms", "aix", "little", "big":
	default:
		return fmt.Errorf("unknown byteOrder %q", c.Output.ByteOrder)
	}
	switch c.Slices.Format {
	case "jpg", "jpeg", "png":
	default:
		return fmt.Errorf("unknown slice format %q", c.Slices.Format)
	}
	if c.Slices.WindowMax <= c.Slices.WindowMin {
		return fmt.Errorf("windowMax %g must be above windowMin %g", c.Slices.WindowMax, c.Slices.WindowMin)
	}
	return nil
}

// LoadConfig loads configuration from a YAML file. A leading ~ is expanded
// to the home directory. If the file doesn't exist, it returns the default
// configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	path, err := homedir.Expand(configPath)
	if err != nil {
		return nil, fmt.Errorf("error expanding config path: %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	path, err := homedir.Expand(configPath)
	if err != nil {
		return fmt.Errorf("error expanding config path: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
