package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Resolve()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, TargetPostgres, cfg.Target.Kind)
	assert.Equal(t, "metrics", cfg.Target.Table)
	assert.Equal(t, 10_000, cfg.Load.BatchSize)
	assert.Equal(t, 1_000, cfg.Load.BatchCount)
	assert.Equal(t, []string{"insert", "insert-values", "copy"}, cfg.Load.Strategies)
	assert.Equal(t, 100*time.Millisecond, cfg.Load.Tick)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"missing dsn", func(c *Config) { c.Target.DSN = "" }, false},
		{"sqlite needs path", func(c *Config) {
			c.Target.Kind = TargetSQLite
			c.Target.Path = ""
		}, false},
		{"sqlite with path", func(c *Config) { c.Target.Kind = TargetSQLite }, true},
		{"unknown kind", func(c *Config) { c.Target.Kind = "oracle" }, false},
		{"empty table", func(c *Config) { c.Target.Table = "" }, false},
		{"zero batch size", func(c *Config) { c.Load.BatchSize = 0 }, false},
		{"zero batch count", func(c *Config) { c.Load.BatchCount = 0 }, false},
		{"no strategies", func(c *Config) { c.Load.Strategies = nil }, false},
		{"bad storage type", func(c *Config) { c.Storage.Type = "ftp" }, false},
		{"s3 needs bucket", func(c *Config) { c.Storage.Type = "s3" }, false},
		{"s3 with bucket", func(c *Config) {
			c.Storage.Type = "s3"
			c.Storage.S3.Bucket = "captures"
		}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Resolve()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	content := `
target:
  kind: sqlite
  path: /tmp/bench.db
  table: readings
load:
  batch_size: 500
  strategies: [copy]
capture:
  enabled: true
  compress: false
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, TargetSQLite, cfg.Target.Kind)
	assert.Equal(t, "readings", cfg.Target.Table)
	assert.Equal(t, 500, cfg.Load.BatchSize)
	assert.Equal(t, []string{"copy"}, cfg.Load.Strategies)
	assert.True(t, cfg.Capture.Enabled)
	assert.False(t, cfg.Capture.Compress)

	// File values overlay defaults, they do not erase them
	assert.Equal(t, 1_000, cfg.Load.BatchCount)
}

func TestLoadFromFileJSON(t *testing.T) {
	content := `{"target": {"kind": "postgres", "dsn": "host=db", "table": "metrics"}}`
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "host=db", cfg.Target.DSN)
}

func TestLoadFromFileUnsupported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	_, err := LoadFromFile(path)
	assert.Error(t, err)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FLUXLOAD_TARGET_DSN", "host=envdb")
	t.Setenv("FLUXLOAD_TARGET_TABLE", "env_metrics")
	t.Setenv("FLUXLOAD_LOAD_BATCH_SIZE", "250")
	t.Setenv("FLUXLOAD_LOAD_SEED", "42")
	t.Setenv("FLUXLOAD_LOAD_TICK", "50ms")
	t.Setenv("FLUXLOAD_LOAD_STRATEGIES", "copy,insert")
	t.Setenv("FLUXLOAD_CAPTURE_ENABLED", "true")
	t.Setenv("FLUXLOAD_STORAGE_TYPE", "s3")
	t.Setenv("FLUXLOAD_S3_BUCKET", "bench-captures")

	cfg := DefaultConfig()
	LoadFromEnv(cfg)

	assert.Equal(t, "host=envdb", cfg.Target.DSN)
	assert.Equal(t, "env_metrics", cfg.Target.Table)
	assert.Equal(t, 250, cfg.Load.BatchSize)
	assert.Equal(t, int64(42), cfg.Load.Seed)
	assert.Equal(t, 50*time.Millisecond, cfg.Load.Tick)
	assert.Equal(t, []string{"copy", "insert"}, cfg.Load.Strategies)
	assert.True(t, cfg.Capture.Enabled)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "bench-captures", cfg.Storage.S3.Bucket)
}
