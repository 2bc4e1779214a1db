// Package benchmark provides performance benchmarks for fluxload.
package benchmark

import (
	"context"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/fluxload/fluxload/internal/generator"
	"github.com/fluxload/fluxload/internal/storage"
	"github.com/fluxload/fluxload/pkg/types"
)

// generateTestRows produces a deterministic batch for encoding benchmarks.
func generateTestRows(n int) []types.Row {
	gen := generator.New(generator.Config{
		Start:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		BaseTemp: 20.0,
		Source:   rand.NewSource(42),
	})
	return gen.NextBatch(n)
}

// getBenchmarkStorage returns capture storage for benchmarks.
// When FLUXLOAD_STORAGE_TYPE=s3, benchmarks run against the configured
// bucket; otherwise a temp-dir local store is used.
func getBenchmarkStorage(b *testing.B) (storage.ObjectStorage, func()) {
	// Try loading .env from project root (../../.env relative to test/benchmark)
	_ = godotenv.Load("../../.env")

	if os.Getenv("FLUXLOAD_STORAGE_TYPE") == "s3" {
		cfg := storage.DefaultS3Config()
		if v := os.Getenv("FLUXLOAD_S3_REGION"); v != "" {
			cfg.Region = v
		}
		cfg.Endpoint = os.Getenv("FLUXLOAD_S3_ENDPOINT")

		store, err := storage.NewS3Storage(context.Background(), os.Getenv("FLUXLOAD_S3_BUCKET"), cfg)
		if err != nil {
			b.Fatalf("failed to create S3 storage: %v", err)
		}
		return store, func() {}
	}

	tmpDir, err := os.MkdirTemp("", "fluxload-bench-*")
	if err != nil {
		b.Fatal(err)
	}
	store, err := storage.NewLocalStorage(tmpDir)
	if err != nil {
		b.Fatal(err)
	}
	return store, func() { os.RemoveAll(tmpDir) }
}
