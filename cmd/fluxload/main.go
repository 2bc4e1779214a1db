// Package main implements the fluxload binary. It generates synthetic sensor
// batches and pushes them into the configured target with every requested
// strategy, reporting per-strategy throughput. A captured run can later be
// replayed byte for byte with --replay.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fluxload/fluxload/internal/app"
	"github.com/fluxload/fluxload/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configFile  string
		dsn         string
		table       string
		strategies  string
		batchSize   int
		batchCount  int
		seed        int64
		capture     bool
		replayRun   string
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dsn, "dsn", "", "PostgreSQL connection string")
	flag.StringVar(&table, "table", "", "Destination table name")
	flag.StringVar(&strategies, "strategies", "", "Comma-separated strategies: insert, insert-values, copy")
	flag.IntVar(&batchSize, "batch-size", 0, "Rows per batch")
	flag.IntVar(&batchCount, "batch-count", 0, "Batches per strategy")
	flag.Int64Var(&seed, "seed", 0, "Generator seed (0 = time-seeded)")
	flag.BoolVar(&capture, "capture", false, "Capture COPY streams to object storage")
	flag.StringVar(&replayRun, "replay", "", "Replay a captured run by run ID instead of generating")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "fluxload - PostgreSQL ingest strategy benchmark\n\n")
		fmt.Fprintf(os.Stderr, "Usage: fluxload [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fluxload --dsn 'host=localhost dbname=bench' --strategies copy\n")
		fmt.Fprintf(os.Stderr, "  fluxload --config fluxload.yaml --capture\n")
		fmt.Fprintf(os.Stderr, "  fluxload --replay 2f6c1d0e-... \n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  FLUXLOAD_TARGET_DSN       PostgreSQL connection string\n")
		fmt.Fprintf(os.Stderr, "  FLUXLOAD_TARGET_TABLE     Destination table\n")
		fmt.Fprintf(os.Stderr, "  FLUXLOAD_LOAD_STRATEGIES  Strategies to run\n")
		fmt.Fprintf(os.Stderr, "  FLUXLOAD_STORAGE_TYPE     Capture storage type (local, s3)\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("fluxload version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	// Pick up .env for local runs before reading the environment
	_ = godotenv.Load()

	cfg, err := loadConfig(configFile, dsn, table, strategies, batchSize, batchCount, seed, capture)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	printBanner(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the run on SIGINT/SIGTERM; a second signal kills the process
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	go func() {
		sig := <-sigCh
		log.Printf("Received signal: %v, stopping", sig)
		cancel()
	}()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer application.Close(context.Background())

	start := time.Now()

	if replayRun != "" {
		if err := application.Replay(ctx, replayRun); err != nil {
			log.Fatalf("Replay failed: %v", err)
		}
		log.Printf("Total time: %.2fs", time.Since(start).Seconds())
		return
	}

	reports, err := application.Run(ctx)
	for _, report := range reports {
		fmt.Println(report.String())
	}
	if err != nil {
		log.Fatalf("Run failed: %v", err)
	}
	log.Printf("Total time: %.2fs", time.Since(start).Seconds())
}

// loadConfig loads configuration from file, environment, and command line flags.
func loadConfig(configFile, dsn, table, strategies string, batchSize, batchCount int, seed int64, capture bool) (*config.Config, error) {
	var cfg *config.Config
	var err error

	// Start with defaults or load from file
	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	// Apply environment variables
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if dsn != "" {
		cfg.Target.DSN = dsn
	}
	if table != "" {
		cfg.Target.Table = table
	}
	if strategies != "" {
		cfg.Load.Strategies = strings.Split(strategies, ",")
	}
	if batchSize > 0 {
		cfg.Load.BatchSize = batchSize
	}
	if batchCount > 0 {
		cfg.Load.BatchCount = batchCount
	}
	if seed != 0 {
		cfg.Load.Seed = seed
	}
	if capture {
		cfg.Capture.Enabled = true
	}

	return cfg, nil
}

// printBanner prints the startup banner with configuration summary.
func printBanner(cfg *config.Config) {
	log.Printf("fluxload starting")
	log.Printf("Configuration:")
	log.Printf("  Target:     %s (table %s)", cfg.Target.Kind, cfg.Target.Table)
	log.Printf("  Batches:    %d x %d rows", cfg.Load.BatchCount, cfg.Load.BatchSize)
	log.Printf("  Strategies: %s", strings.Join(cfg.Load.Strategies, ", "))
	if cfg.Capture.Enabled {
		log.Printf("  Capture:    %s storage, compress=%v", cfg.Storage.Type, cfg.Capture.Compress)
	}
}
