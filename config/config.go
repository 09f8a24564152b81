// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package config provides layered configuration for the chunk pipeline.
//
// Loading order (later overrides earlier):
//  1. Defaults (hardcoded)
//  2. YAML config file (CONFIG_FILE or --config)
//  3. Environment variables
//
// Load resolves the layers once at startup into a single Config value;
// nothing downstream reads files or the environment directly.
package config

import (
	"fmt"
)

// Driver names accepted in source and sink configuration.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
	DriverBadger   = "badger"
	DriverMongo    = "mongodb"
	DriverDynamo   = "dynamodb"
)

// Defaults applied before any file or environment override.
const (
	DefaultChunkSize       = 700
	DefaultBatchCommitSize = 1000
	DefaultReportInterval  = 100
	DefaultChunkTable      = "chunks"
	DefaultRegion          = "us-east-1"
	DefaultLogLevel        = "info"
)

// Config is the complete pipeline configuration.
type Config struct {
	Source     SourceConfig     `yaml:"source"`
	Sink       SinkConfig       `yaml:"sink"`
	Processing ProcessingConfig `yaml:"processing"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SourceConfig describes where posts and comments are read from.
// Driver decides which of the remaining fields apply: SQL drivers use
// DSN, badger uses Path, mongodb uses DSN plus Database.
type SourceConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Path     string `yaml:"path"`
	Database string `yaml:"database"`
}

// SinkConfig describes where chunks are written. Table, Region and
// Endpoint apply to the dynamodb driver only.
type SinkConfig struct {
	Driver   string `yaml:"driver"`
	DSN      string `yaml:"dsn"`
	Path     string `yaml:"path"`
	Database string `yaml:"database"`
	Table    string `yaml:"table"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// ProcessingConfig holds the chunking and batching knobs.
type ProcessingConfig struct {
	ChunkSize       int `yaml:"chunk_size"`
	BatchCommitSize int `yaml:"batch_commit_size"`
	ReportInterval  int `yaml:"report_interval"`
}

// LoggingConfig holds the log settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the default configuration. Connection details
// carry no defaults; they must come from the file or the environment.
func DefaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Driver: DriverPostgres,
		},
		Sink: SinkConfig{
			Driver: DriverPostgres,
			Table:  DefaultChunkTable,
			Region: DefaultRegion,
		},
		Processing: ProcessingConfig{
			ChunkSize:       DefaultChunkSize,
			BatchCommitSize: DefaultBatchCommitSize,
			ReportInterval:  DefaultReportInterval,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// Validate checks that the configuration is complete enough to open the
// configured source and sink. It fails fast rather than substituting
// defaults for required connection fields.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config is nil")
	}

	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source: %w", err)
	}
	if err := c.Sink.Validate(); err != nil {
		return fmt.Errorf("sink: %w", err)
	}
	if err := c.Processing.Validate(); err != nil {
		return fmt.Errorf("processing: %w", err)
	}
	return nil
}

// Validate checks the source section on its own, for callers that only
// open the read side.
func (c *SourceConfig) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for driver %q", c.Driver)
		}
	case DriverBadger:
		if c.Path == "" {
			return fmt.Errorf("path is required for driver %q", c.Driver)
		}
	case DriverMongo:
		if c.DSN == "" || c.Database == "" {
			return fmt.Errorf("dsn and database are required for driver %q", c.Driver)
		}
	case "":
		return fmt.Errorf("driver is required")
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

// Validate checks the sink section on its own, for callers that only
// open the write side.
func (c *SinkConfig) Validate() error {
	switch c.Driver {
	case DriverPostgres, DriverSQLite:
		if c.DSN == "" {
			return fmt.Errorf("dsn is required for driver %q", c.Driver)
		}
	case DriverBadger:
		if c.Path == "" {
			return fmt.Errorf("path is required for driver %q", c.Driver)
		}
	case DriverMongo:
		if c.DSN == "" || c.Database == "" {
			return fmt.Errorf("dsn and database are required for driver %q", c.Driver)
		}
	case DriverDynamo:
		if c.Table == "" {
			return fmt.Errorf("table is required for driver %q", c.Driver)
		}
		if c.Region == "" {
			return fmt.Errorf("region is required for driver %q", c.Driver)
		}
	case "":
		return fmt.Errorf("driver is required")
	default:
		return fmt.Errorf("unknown driver %q", c.Driver)
	}
	return nil
}

// Validate checks the chunking and batching knobs.
func (c *ProcessingConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be greater than 0, got %d", c.ChunkSize)
	}
	if c.BatchCommitSize <= 0 {
		return fmt.Errorf("batch_commit_size must be greater than 0, got %d", c.BatchCommitSize)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("report_interval must be greater than 0, got %d", c.ReportInterval)
	}
	return nil
}
