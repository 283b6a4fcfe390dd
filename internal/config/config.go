// Package config handles subdtool configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/Faultbox/subd-patches/pkg/encoding"
)

// Config holds all converter settings.
type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	Output  OutputConfig  `yaml:"output"`
	Batch   BatchConfig   `yaml:"batch"`
	Logging LoggingConfig `yaml:"logging"`
}

// ConvertConfig holds patch conversion settings.
type ConvertConfig struct {
	FlipWinding  bool   `yaml:"flip_winding"`  // Reverse winding of boundary patches
	NameEncoding string `yaml:"name_encoding"` // Encoding of OBJ material names
}

// OutputConfig holds where patch files are written.
type OutputConfig struct {
	Dir       string `yaml:"dir"` // Empty writes next to the input
	Extension string `yaml:"extension"`
}

// BatchConfig holds batch conversion settings.
type BatchConfig struct {
	Workers  int    `yaml:"workers"` // 0 uses one worker per CPU
	Manifest string `yaml:"manifest"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	LogFile    string `yaml:"log_file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Convert: ConvertConfig{
			FlipWinding:  false,
			NameEncoding: encoding.UTF8,
		},
		Output: OutputConfig{
			Dir:       "",
			Extension: ".sdpf",
		},
		Batch: BatchConfig{
			Workers:  0,
			Manifest: "manifest.yaml",
		},
		Logging: LoggingConfig{
			Level:      "info",
			LogFile:    "",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 7,
			Compress:   true,
		},
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if _, err := encoding.Lookup(c.Convert.NameEncoding); err != nil {
		errs = append(errs, err)
	}
	if c.Output.Extension == "" {
		errs = append(errs, errors.New("output extension is empty"))
	}
	if c.Batch.Workers < 0 {
		errs = append(errs, fmt.Errorf("batch workers %d is negative", c.Batch.Workers))
	}
	return errors.Join(errs...)
}

// WorkerCount returns the number of batch workers to start.
func (c *Config) WorkerCount() int {
	if c.Batch.Workers > 0 {
		return c.Batch.Workers
	}
	return runtime.NumCPU()
}
