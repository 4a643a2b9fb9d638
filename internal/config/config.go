// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Pipeline  PipelineConfig
	Storage   StorageConfig
	Warehouse WarehouseConfig
	Runs      RunConfig
	Sweep     SweepConfig
	Logging   LoggingConfig
}

// ServerConfig holds settings for the HTTP trigger server.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on. PORT is honoured for managed runtimes (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading a request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is how long to wait for in-flight runs on shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// APIKeys are accepted on the /api routes (comma-separated); empty leaves them open
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies are CIDRs whose X-Real-IP / X-Forwarded-For headers are honoured
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// PipelineConfig controls how a single file is cleaned.
type PipelineConfig struct {
	// SchemaPath is the expected-columns document; empty skips validation
	SchemaPath string `env:"SCHEMA_PATH"`

	// DropIndexColumns removes exported row-index columns before validation (default: false)
	DropIndexColumns bool `env:"DROP_INDEX_COLUMNS" default:"false"`

	// Delimiter is the single-character field separator (default: ,)
	Delimiter string `env:"CSV_DELIMITER" default:","`

	// NullMarkers overrides the cell values read as missing (comma-separated)
	NullMarkers []string `env:"CSV_NULL_MARKERS"`

	// MaxFileSize is the largest accepted input in bytes (default: 512MB)
	MaxFileSize int64 `env:"MAX_FILE_SIZE" default:"536870912"`

	// WorkDir holds downloaded and cleaned files during a run (default: system temp dir)
	WorkDir string `env:"WORK_DIR"`
}

// StorageConfig holds object storage settings.
type StorageConfig struct {
	// CleanBucket receives cleaned files; required for object processing
	CleanBucket string `env:"CLEAN_BUCKET"`

	// Project is the GCP project used for billing and listing
	Project string `env:"GCP_PROJECT" envAlt:"CLOUDSDK_CORE_PROJECT"`

	// Credentials is a service account key file path or its JSON contents
	Credentials string `env:"GOOGLE_CREDENTIALS"`

	// QuotaProject overrides the project charged for API quota
	QuotaProject string `env:"GOOGLE_CLOUD_QUOTA_PROJECT"`

	// Impersonate is a service account to impersonate
	Impersonate string `env:"GCP_IMPERSONATE_SERVICE_ACCOUNT"`

	// LocalRoot switches to a directory-backed store, one sub-directory per bucket
	LocalRoot string `env:"STORAGE_LOCAL_ROOT"`
}

// WarehouseConfig holds the warehouse load settings.
type WarehouseConfig struct {
	// URL is the PostgreSQL connection string; empty disables the load step
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Schema is the target schema (default: public)
	Schema string `env:"WAREHOUSE_SCHEMA" envAlt:"BQ_DATASET" default:"public"`

	// Table is the target table (default: listings)
	Table string `env:"WAREHOUSE_TABLE" envAlt:"BQ_TABLE" default:"listings"`

	// MaxConns is the maximum number of pooled connections (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the number of connections kept open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// LoadTimeout bounds a single load (default: 5m)
	LoadTimeout time.Duration `env:"WAREHOUSE_LOAD_TIMEOUT" default:"5m"`
}

// RunConfig bounds concurrent pipeline runs in server mode.
type RunConfig struct {
	// MaxConcurrent is the number of runs allowed in parallel (default: 2)
	MaxConcurrent int `env:"RUN_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a request waits for a free slot (default: 30s)
	MaxWaitTime time.Duration `env:"RUN_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a whole run (default: 10m)
	Timeout time.Duration `env:"RUN_TIMEOUT" default:"10m"`
}

// SweepConfig controls scheduled sweeps of the raw bucket.
type SweepConfig struct {
	// Schedule is a cron expression; empty disables scheduled sweeps
	Schedule string `env:"SWEEP_SCHEDULE"`

	// Bucket is the raw bucket to sweep
	Bucket string `env:"RAW_BUCKET"`

	// Prefix limits the sweep to objects under this prefix
	Prefix string `env:"SWEEP_PREFIX"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// Dir receives daily log files outside GCP; empty disables file logging
	Dir string `env:"LOG_DIR"`

	// RunningInGCP disables file logging (default: false)
	RunningInGCP bool `env:"RUNNING_IN_GCP" default:"false"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Comma returns the configured delimiter as a rune.
func (c *PipelineConfig) Comma() rune {
	for _, r := range c.Delimiter {
		return r
	}
	return ','
}

// WarehouseEnabled reports whether cleaned files are loaded into the warehouse.
func (c *Config) WarehouseEnabled() bool {
	return c.Warehouse.URL != ""
}
