// Package config provides the configuration system for Basalt.
// A single Config structure carries logging and writer defaults; values
// are loaded from YAML with environment variable substitution.
package config

import (
	"fmt"
)

// Config is the top-level Basalt configuration.
type Config struct {
	// Logging controls the structured logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Writer holds Parquet writer defaults
	Writer WriterConfig `yaml:"writer" json:"writer"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`
	// Encoding selects the log format (json or console)
	Encoding string `yaml:"encoding" json:"encoding"`
	// Development enables human-friendly output and stack traces
	Development bool `yaml:"development" json:"development"`
}

// WriterConfig contains Parquet writer defaults.
type WriterConfig struct {
	// RowGroupSize is the maximum number of rows per row group.
	// Smaller row groups produce more chunks on read.
	RowGroupSize int64 `yaml:"row_group_size" json:"row_group_size"`
	// Compression selects the column compression codec
	// (none, snappy, zstd, gzip)
	Compression string `yaml:"compression" json:"compression"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "json",
		},
		Writer: WriterConfig{
			RowGroupSize: 128 * 1024,
			Compression:  "snappy",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", c.Logging.Level)
	}

	switch c.Logging.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("invalid log encoding: %q", c.Logging.Encoding)
	}

	if c.Writer.RowGroupSize <= 0 {
		return fmt.Errorf("row_group_size must be positive, got %d", c.Writer.RowGroupSize)
	}

	switch c.Writer.Compression {
	case "none", "snappy", "zstd", "gzip":
	default:
		return fmt.Errorf("invalid compression codec: %q", c.Writer.Compression)
	}

	return nil
}
