// Package config handles runtime configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all scene runtime settings.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging"`
	Loader   LoaderConfig   `yaml:"loader"`
	Updater  UpdaterConfig  `yaml:"updater"`
	Profiler ProfilerConfig `yaml:"profiler"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// LoaderConfig holds asset loading settings.
type LoaderConfig struct {
	AssetRoot        string `yaml:"asset_root"`         // Prefix joined onto relative load folders
	MaxParallelLoads int    `yaml:"max_parallel_loads"` // Upper bound for LoadMany
	GenerateMipmaps  bool   `yaml:"generate_mipmaps"`
}

// UpdaterConfig holds frame update settings.
type UpdaterConfig struct {
	ParallelThreshold int `yaml:"parallel_threshold"` // Collections at or below this size run inline
	Workers           int `yaml:"workers"`
	QueueSize         int `yaml:"queue_size"`
}

// ProfilerConfig holds frame statistics settings.
type ProfilerConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			File:       "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
		Loader: LoaderConfig{
			AssetRoot:        "",
			MaxParallelLoads: 4,
			GenerateMipmaps:  true,
		},
		Updater: UpdaterConfig{
			ParallelThreshold: 3,
			Workers:           max(runtime.NumCPU()-1, 1),
			QueueSize:         1024,
		},
		Profiler: ProfilerConfig{
			Enabled:  false,
			Interval: time.Second,
		},
	}
}

// Load returns the defaults merged with the YAML file at path. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// Save writes the configuration to path as YAML, creating parent directories as needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// normalize replaces non-positive values that would stall the runtime.
func (c *Config) normalize() {
	def := Default()
	if c.Updater.ParallelThreshold < 0 {
		c.Updater.ParallelThreshold = def.Updater.ParallelThreshold
	}
	if c.Updater.Workers <= 0 {
		c.Updater.Workers = def.Updater.Workers
	}
	if c.Updater.QueueSize <= 0 {
		c.Updater.QueueSize = def.Updater.QueueSize
	}
	if c.Loader.MaxParallelLoads <= 0 {
		c.Loader.MaxParallelLoads = def.Loader.MaxParallelLoads
	}
	if c.Profiler.Interval <= 0 {
		c.Profiler.Interval = def.Profiler.Interval
	}
}
