package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is consulted when neither --config nor CONFIG_FILE
// names a file.
const DefaultConfigFile = "config/config.yaml"

// ConfigError describes a configuration problem with its origin.
type ConfigError struct {
	Path  string
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return "config error in " + e.Path + ": " + e.Err.Error()
	}
	if e.Field != "" {
		return "config error for " + e.Field + ": " + e.Err.Error()
	}
	return "config error: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Load resolves the configuration layers: defaults, then the YAML file,
// then environment variables.
//
// An explicitly named file (path argument or CONFIG_FILE) must exist; the
// default file is optional and skipped silently when absent. Validation
// is the caller's step, after Load.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		if v := os.Getenv("CONFIG_FILE"); v != "" {
			path = v
			explicit = true
		} else {
			path = DefaultConfigFile
		}
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
	case os.IsNotExist(err) && !explicit:
		// No config file; defaults plus environment cover it.
	default:
		return nil, &ConfigError{Path: path, Err: err}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variables on top of the file
// values. The DB_* family mirrors the upstream collector's deployment
// and assembles a postgres DSN; SOURCE_*/SINK_* address the fields
// directly.
func applyEnvOverrides(cfg *Config) error {
	// Database configuration the way the collector's deployment sets it.
	// DB_HOST selects the postgres source; the sink follows only when it
	// is already a SQL driver, so a dynamodb or badger sink survives.
	if host := os.Getenv("DB_HOST"); host != "" {
		dsn := postgresDSN(host, os.Getenv("DB_PORT"), os.Getenv("DB_NAME"),
			os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"))
		cfg.Source.Driver = DriverPostgres
		cfg.Source.DSN = dsn
		if cfg.Sink.Driver == DriverPostgres {
			cfg.Sink.DSN = dsn
		}
	}

	if v := os.Getenv("SOURCE_DRIVER"); v != "" {
		cfg.Source.Driver = v
	}
	if v := os.Getenv("SOURCE_DSN"); v != "" {
		cfg.Source.DSN = v
	}
	if v := os.Getenv("SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("SOURCE_DATABASE"); v != "" {
		cfg.Source.Database = v
	}

	if v := os.Getenv("SINK_DRIVER"); v != "" {
		cfg.Sink.Driver = v
	}
	if v := os.Getenv("SINK_DSN"); v != "" {
		cfg.Sink.DSN = v
	}
	if v := os.Getenv("SINK_PATH"); v != "" {
		cfg.Sink.Path = v
	}
	if v := os.Getenv("SINK_DATABASE"); v != "" {
		cfg.Sink.Database = v
	}
	if v := os.Getenv("SINK_TABLE"); v != "" {
		cfg.Sink.Table = v
	}
	if v := os.Getenv("SINK_ENDPOINT"); v != "" {
		cfg.Sink.Endpoint = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.Sink.Region = v
	}

	if err := intFromEnv("CHUNK_SIZE", &cfg.Processing.ChunkSize); err != nil {
		return err
	}
	if err := intFromEnv("BATCH_COMMIT_SIZE", &cfg.Processing.BatchCommitSize); err != nil {
		return err
	}
	if err := intFromEnv("REPORT_INTERVAL", &cfg.Processing.ReportInterval); err != nil {
		return err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return nil
}

func intFromEnv(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		return &ConfigError{Field: strings.ToLower(name), Err: err}
	}
	*dst = n
	return nil
}

// postgresDSN assembles a lib/pq DSN from the collector's DB_* parts.
// TLS setups should pass a full DSN through SOURCE_DSN/SINK_DSN instead.
func postgresDSN(host, port, name, user, password string) string {
	if port == "" {
		port = "5432"
	}
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		host, port, name, user, password)
}
