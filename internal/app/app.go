// Package app wires configuration, sink, storage and runner together.
package app

import (
	"context"
	"fmt"
	"log"

	"github.com/fluxload/fluxload/internal/bench"
	"github.com/fluxload/fluxload/internal/capture"
	"github.com/fluxload/fluxload/internal/config"
	"github.com/fluxload/fluxload/internal/sink"
	"github.com/fluxload/fluxload/internal/storage"
)

// App is the assembled load harness.
type App struct {
	cfg      *config.Config
	sink     sink.Sink
	store    storage.ObjectStorage
	capturer *capture.Capturer
	runner   *bench.Runner
}

// New builds an App from configuration. The sink is connected and the
// destination table is created when the target asks for it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s, err := buildSink(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var store storage.ObjectStorage
	var capturer *capture.Capturer
	if cfg.Capture.Enabled {
		store, err = buildStorage(ctx, cfg)
		if err != nil {
			s.Close(ctx)
			return nil, err
		}
		capturer = capture.NewCapturer(store, cfg.Capture.Prefix, cfg.Target.Table, cfg.Capture.Compress)
		log.Printf("capture enabled: run=%s prefix=%s compress=%v",
			capturer.RunID(), cfg.Capture.Prefix, cfg.Capture.Compress)
	}

	opts := bench.Options{
		Table:       cfg.Target.Table,
		BatchSize:   cfg.Load.BatchSize,
		BatchCount:  cfg.Load.BatchCount,
		BaseTemp:    cfg.Load.BaseTemp,
		StartOffset: cfg.Load.StartOffset,
		Tick:        cfg.Load.Tick,
		Seed:        cfg.Load.Seed,
		ReportEvery: cfg.Load.ReportEvery,
	}

	return &App{
		cfg:      cfg,
		sink:     s,
		store:    store,
		capturer: capturer,
		runner:   bench.NewRunner(s, opts, bench.NewLoadStats(), capturer),
	}, nil
}

// Run executes the configured strategies in order and returns their reports.
func (a *App) Run(ctx context.Context) ([]bench.Report, error) {
	strategies := make([]bench.Strategy, 0, len(a.cfg.Load.Strategies))
	for _, name := range a.cfg.Load.Strategies {
		st, err := bench.ParseStrategy(name)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, st)
	}

	reports, err := a.runner.Run(ctx, strategies)
	if err != nil {
		return reports, err
	}

	if a.capturer != nil {
		if err := a.capturer.Finish(ctx); err != nil {
			return reports, fmt.Errorf("failed to finalize capture manifest: %w", err)
		}
		log.Printf("capture complete: run=%s batches=%d", a.capturer.RunID(), a.capturer.Batches())
	}
	return reports, nil
}

// Replay re-applies a captured run against the configured sink. Streams are
// fingerprint-verified before being handed to the COPY path.
func (a *App) Replay(ctx context.Context, runID string) error {
	store, err := buildStorage(ctx, a.cfg)
	if err != nil {
		return err
	}

	var rows, batches int
	_, err = capture.Replay(ctx, store, a.cfg.Capture.Prefix, runID,
		func(rec capture.BatchRecord, stream []byte) error {
			if err := a.sink.CopyStream(ctx, a.cfg.Target.Table, stream); err != nil {
				return err
			}
			rows += rec.Rows
			batches++
			return nil
		})
	if err != nil {
		return err
	}
	log.Printf("replay complete: run=%s batches=%d rows=%d", runID, batches, rows)
	return nil
}

// Stats exposes the runner's per-strategy counters.
func (a *App) Stats() *bench.LoadStats {
	return a.runner.Stats()
}

// Close releases the sink connection.
func (a *App) Close(ctx context.Context) error {
	return a.sink.Close(ctx)
}

func buildSink(ctx context.Context, cfg *config.Config) (sink.Sink, error) {
	switch cfg.Target.Kind {
	case config.TargetPostgres:
		ps, err := sink.NewPostgresSink(ctx, cfg.Target.DSN)
		if err != nil {
			return nil, err
		}
		if cfg.Target.CreateTable {
			if err := ps.EnsureTable(ctx, cfg.Target.Table); err != nil {
				ps.Close(ctx)
				return nil, err
			}
		}
		return ps, nil
	case config.TargetSQLite:
		ss, err := sink.NewSQLiteSink(cfg.Target.Path)
		if err != nil {
			return nil, err
		}
		if cfg.Target.CreateTable {
			if err := ss.EnsureTable(ctx, cfg.Target.Table); err != nil {
				ss.Close(ctx)
				return nil, err
			}
		}
		return ss, nil
	default:
		return nil, fmt.Errorf("unknown target kind: %s", cfg.Target.Kind)
	}
}

func buildStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Type {
	case "s3":
		s3cfg := storage.DefaultS3Config()
		if cfg.Storage.S3.Region != "" {
			s3cfg.Region = cfg.Storage.S3.Region
		}
		s3cfg.Endpoint = cfg.Storage.S3.Endpoint
		return storage.NewS3Storage(ctx, cfg.Storage.S3.Bucket, s3cfg)
	default:
		return storage.NewLocalStorage(cfg.Storage.Path)
	}
}
