// Package config provides unified configuration for the fluxload harness.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TargetKind selects the sink implementation.
type TargetKind string

const (
	TargetPostgres TargetKind = "postgres"
	TargetSQLite   TargetKind = "sqlite"
)

// Config holds the unified configuration for a load run.
type Config struct {
	// Target selects and configures the sink
	Target TargetConfig `json:"target" yaml:"target"`

	// Load configures batch generation and strategy execution
	Load LoadConfig `json:"load" yaml:"load"`

	// Capture configures COPY stream capture and replay
	Capture CaptureConfig `json:"capture" yaml:"capture"`

	// Storage configures where captured runs are stored
	Storage StorageConfig `json:"storage" yaml:"storage"`
}

// TargetConfig holds sink configuration.
type TargetConfig struct {
	// Kind is the sink type: postgres, sqlite
	Kind TargetKind `json:"kind" yaml:"kind"`

	// DSN is the PostgreSQL connection string (postgres kind)
	DSN string `json:"dsn" yaml:"dsn"`

	// Path is the database file path (sqlite kind)
	Path string `json:"path" yaml:"path"`

	// Table is the destination table name
	Table string `json:"table" yaml:"table"`

	// CreateTable creates the table on startup if missing
	CreateTable bool `json:"create_table" yaml:"create_table"`
}

// LoadConfig holds generation and run configuration.
type LoadConfig struct {
	// BatchSize is the number of rows per batch
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// BatchCount is the number of batches per strategy
	BatchCount int `json:"batch_count" yaml:"batch_count"`

	// BaseTemp is the base temperature the generator perturbs
	BaseTemp float64 `json:"base_temp" yaml:"base_temp"`

	// StartOffset shifts the first timestamp relative to now
	StartOffset time.Duration `json:"start_offset" yaml:"start_offset"`

	// Tick is the per-row timestamp advance
	Tick time.Duration `json:"tick" yaml:"tick"`

	// Seed seeds the generator (0 = time-seeded)
	Seed int64 `json:"seed" yaml:"seed"`

	// Strategies lists the sink paths to run, in order
	Strategies []string `json:"strategies" yaml:"strategies"`

	// ReportEvery is the progress log interval in batches
	ReportEvery int `json:"report_every" yaml:"report_every"`
}

// CaptureConfig holds capture/replay configuration.
type CaptureConfig struct {
	// Enabled captures every built COPY stream to object storage
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Prefix scopes capture runs within the store
	Prefix string `json:"prefix" yaml:"prefix"`

	// Compress snappy-compresses captured streams
	Compress bool `json:"compress" yaml:"compress"`
}

// StorageConfig holds object storage configuration.
type StorageConfig struct {
	// Type is the storage type: local, s3
	Type string `json:"type" yaml:"type"`

	// Path is the local storage path (for local type)
	Path string `json:"path" yaml:"path"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	// Bucket is the S3 bucket name
	Bucket string `json:"bucket" yaml:"bucket"`

	// Region is the AWS region
	Region string `json:"region" yaml:"region"`

	// Endpoint is the S3 endpoint (for S3-compatible storage)
	Endpoint string `json:"endpoint" yaml:"endpoint"`
}

// DefaultConfig returns the default configuration for local development.
func DefaultConfig() *Config {
	return &Config{
		Target: TargetConfig{
			Kind:        TargetPostgres,
			DSN:         "host=localhost dbname=postgres user=postgres password=postgres",
			Path:        "./data/fluxload/metrics.db",
			Table:       "metrics",
			CreateTable: true,
		},
		Load: LoadConfig{
			BatchSize:   10_000,
			BatchCount:  1_000,
			BaseTemp:    20.0,
			StartOffset: 8 * 24 * time.Hour,
			Tick:        100 * time.Millisecond,
			Strategies:  []string{"insert", "insert-values", "copy"},
			ReportEvery: 100,
		},
		Capture: CaptureConfig{
			Prefix:   "captures",
			Compress: true,
		},
		Storage: StorageConfig{
			Type: "local",
			Path: "",
		},
	}
}

// Resolve resolves relative paths and sets defaults.
func (c *Config) Resolve() {
	if c.Storage.Path == "" {
		c.Storage.Path = filepath.Join("./data/fluxload", "storage")
	}
	if c.Load.ReportEvery <= 0 {
		c.Load.ReportEvery = 100
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	switch c.Target.Kind {
	case TargetPostgres:
		if c.Target.DSN == "" {
			return fmt.Errorf("target.dsn is required for the postgres target")
		}
	case TargetSQLite:
		if c.Target.Path == "" {
			return fmt.Errorf("target.path is required for the sqlite target")
		}
	default:
		return fmt.Errorf("invalid target kind: %s (must be postgres or sqlite)", c.Target.Kind)
	}

	if c.Target.Table == "" {
		return fmt.Errorf("target.table is required")
	}

	if c.Load.BatchSize <= 0 {
		return fmt.Errorf("load.batch_size must be positive, got %d", c.Load.BatchSize)
	}
	if c.Load.BatchCount <= 0 {
		return fmt.Errorf("load.batch_count must be positive, got %d", c.Load.BatchCount)
	}
	if len(c.Load.Strategies) == 0 {
		return fmt.Errorf("load.strategies must name at least one strategy")
	}

	if c.Storage.Type != "local" && c.Storage.Type != "s3" {
		return fmt.Errorf("invalid storage type: %s (must be local or s3)", c.Storage.Type)
	}
	if c.Storage.Type == "s3" && c.Storage.S3.Bucket == "" {
		return fmt.Errorf("s3.bucket is required when storage type is s3")
	}

	return nil
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the FLUXLOAD_ prefix.
func LoadFromEnv(cfg *Config) {
	// Target configuration
	if v := os.Getenv("FLUXLOAD_TARGET_KIND"); v != "" {
		cfg.Target.Kind = TargetKind(v)
	}
	if v := os.Getenv("FLUXLOAD_TARGET_DSN"); v != "" {
		cfg.Target.DSN = v
	}
	if v := os.Getenv("FLUXLOAD_TARGET_PATH"); v != "" {
		cfg.Target.Path = v
	}
	if v := os.Getenv("FLUXLOAD_TARGET_TABLE"); v != "" {
		cfg.Target.Table = v
	}
	if v := os.Getenv("FLUXLOAD_TARGET_CREATE_TABLE"); v != "" {
		cfg.Target.CreateTable = v == "true" || v == "1"
	}

	// Load configuration
	if v := os.Getenv("FLUXLOAD_LOAD_BATCH_SIZE"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Load.BatchSize)
	}
	if v := os.Getenv("FLUXLOAD_LOAD_BATCH_COUNT"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Load.BatchCount)
	}
	if v := os.Getenv("FLUXLOAD_LOAD_BASE_TEMP"); v != "" {
		fmt.Sscanf(v, "%f", &cfg.Load.BaseTemp)
	}
	if v := os.Getenv("FLUXLOAD_LOAD_SEED"); v != "" {
		fmt.Sscanf(v, "%d", &cfg.Load.Seed)
	}
	if v := os.Getenv("FLUXLOAD_LOAD_TICK"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Load.Tick = d
		}
	}
	if v := os.Getenv("FLUXLOAD_LOAD_START_OFFSET"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Load.StartOffset = d
		}
	}
	if v := os.Getenv("FLUXLOAD_LOAD_STRATEGIES"); v != "" {
		cfg.Load.Strategies = strings.Split(v, ",")
	}

	// Capture configuration
	if v := os.Getenv("FLUXLOAD_CAPTURE_ENABLED"); v != "" {
		cfg.Capture.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("FLUXLOAD_CAPTURE_COMPRESS"); v != "" {
		cfg.Capture.Compress = v == "true" || v == "1"
	}

	// Storage configuration
	if v := os.Getenv("FLUXLOAD_STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("FLUXLOAD_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("FLUXLOAD_S3_BUCKET"); v != "" {
		cfg.Storage.S3.Bucket = v
	}
	if v := os.Getenv("FLUXLOAD_S3_REGION"); v != "" {
		cfg.Storage.S3.Region = v
	}
	if v := os.Getenv("FLUXLOAD_S3_ENDPOINT"); v != "" {
		cfg.Storage.S3.Endpoint = v
	}
}
