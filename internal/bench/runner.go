package bench

import (
	"context"
	"fmt"
	"log"
	"math"
	"math/rand"
	"time"

	"github.com/fluxload/fluxload/internal/capture"
	apperrors "github.com/fluxload/fluxload/internal/errors"
	"github.com/fluxload/fluxload/internal/generator"
	"github.com/fluxload/fluxload/internal/pgcopy"
	"github.com/fluxload/fluxload/internal/sink"
)

// Strategy selects how a batch reaches the sink.
type Strategy string

const (
	// StrategyInsert pushes rows one prepared-statement execution at a time.
	StrategyInsert Strategy = "insert"
	// StrategyInsertValues pushes each batch as one multi-row VALUES statement.
	StrategyInsertValues Strategy = "insert-values"
	// StrategyCopy pushes each batch as a COPY BINARY stream.
	StrategyCopy Strategy = "copy"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(name string) (Strategy, error) {
	switch Strategy(name) {
	case StrategyInsert, StrategyInsertValues, StrategyCopy:
		return Strategy(name), nil
	default:
		return "", apperrors.NewValidationError(apperrors.CodeInvalidStrategy,
			fmt.Sprintf("unknown strategy %q (must be insert, insert-values, or copy)", name))
	}
}

// Options configures a run.
type Options struct {
	Table       string
	BatchSize   int
	BatchCount  int
	BaseTemp    float64
	StartOffset time.Duration // offset of the first timestamp from now
	Tick        time.Duration
	Seed        int64 // 0 seeds from the clock
	ReportEvery int   // progress log interval in batches
}

// Report summarizes one strategy run.
type Report struct {
	Strategy   Strategy
	Rows       int64
	Batches    int64
	Bytes      int64 // payload bytes pushed (COPY streams only)
	SizeGrowth int64 // table size delta, when the sink can report it
	Elapsed    time.Duration
}

// Throughput returns the table growth rate in MB/s, falling back to payload
// bytes when the sink cannot report sizes.
func (r Report) Throughput() float64 {
	secs := r.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	grown := r.SizeGrowth
	if grown == 0 {
		grown = r.Bytes
	}
	return ConvertBytes(float64(grown)/secs, "MB")
}

// String formats the report the way the harness prints it.
func (r Report) String() string {
	grown := r.SizeGrowth
	if grown == 0 {
		grown = r.Bytes
	}
	return fmt.Sprintf("fn %s:\nSpeed: %.2fMB/s\n Data: %.2fMB\n Time: %.2fs",
		r.Strategy, r.Throughput(), ConvertBytes(float64(grown), "MB"), r.Elapsed.Seconds())
}

// ConvertBytes converts a byte count to the given unit (B, KB, MB, GB, TB, PB).
func ConvertBytes(bytes float64, to string) float64 {
	units := []string{"B", "KB", "MB", "GB", "TB", "PB"}
	index := 0
	for i, u := range units {
		if u == to {
			index = i
			break
		}
	}
	return bytes / math.Pow(1024, float64(index))
}

// Runner executes strategies against a sink, optionally capturing the COPY
// streams it builds.
type Runner struct {
	sink     sink.Sink
	opts     Options
	stats    *LoadStats
	capturer *capture.Capturer
}

// NewRunner creates a runner. The capturer may be nil; stats may be shared
// across runners.
func NewRunner(s sink.Sink, opts Options, stats *LoadStats, capturer *capture.Capturer) *Runner {
	if opts.ReportEvery <= 0 {
		opts.ReportEvery = 100
	}
	if stats == nil {
		stats = NewLoadStats()
	}
	return &Runner{sink: s, opts: opts, stats: stats, capturer: capturer}
}

// Stats returns the runner's stats tracker.
func (r *Runner) Stats() *LoadStats {
	return r.stats
}

// RunStrategy generates opts.BatchCount batches and pushes each through the
// strategy's sink path. Encoding is deterministic, so a failed batch aborts
// the strategy: retrying cannot change the outcome, and a partially built
// buffer is discarded rather than forwarded.
func (r *Runner) RunStrategy(ctx context.Context, strategy Strategy) (Report, error) {
	gen := generator.New(generator.Config{
		Start:    time.Now().UTC().Add(r.opts.StartOffset),
		BaseTemp: r.opts.BaseTemp,
		Tick:     r.opts.Tick,
		Source:   r.seedSource(),
	})

	var sizeBefore int64
	sizer, hasSizer := r.sink.(sink.TableSizer)
	if hasSizer {
		var err error
		if sizeBefore, err = sizer.TableSize(ctx, r.opts.Table); err != nil {
			return Report{}, err
		}
	}

	report := Report{Strategy: strategy}
	started := time.Now()

	for tick := 1; tick <= r.opts.BatchCount; tick++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		rows := gen.NextBatch(r.opts.BatchSize)
		batchStart := time.Now()

		var pushed int
		var err error
		switch strategy {
		case StrategyCopy:
			var stream []byte
			stream, err = pgcopy.BuildStream(rows)
			if err == nil && r.capturer != nil {
				err = r.capturer.CaptureBatch(ctx, len(rows), stream)
			}
			if err == nil {
				pushed = len(stream)
				err = r.sink.CopyStream(ctx, r.opts.Table, stream)
			}
		case StrategyInsert:
			err = r.sink.InsertRows(ctx, r.opts.Table, rows)
		case StrategyInsertValues:
			err = r.sink.InsertValues(ctx, r.opts.Table, rows)
		default:
			return report, apperrors.NewValidationError(apperrors.CodeInvalidStrategy, string(strategy))
		}

		if err != nil {
			r.stats.RecordError(strategy)
			return report, err
		}

		r.stats.RecordBatch(strategy, len(rows), pushed, time.Since(batchStart))
		report.Batches++
		report.Rows += int64(len(rows))
		report.Bytes += int64(pushed)

		if tick%r.opts.ReportEvery == 0 {
			log.Printf("strategy=%s copied %d", strategy, tick)
		}
	}

	report.Elapsed = time.Since(started)
	if hasSizer {
		sizeAfter, err := sizer.TableSize(ctx, r.opts.Table)
		if err != nil {
			return report, err
		}
		report.SizeGrowth = sizeAfter - sizeBefore
	}

	return report, nil
}

// Run executes each strategy in order and returns their reports. The first
// failure aborts the run: later strategies would measure against a table in
// an unknown state.
func (r *Runner) Run(ctx context.Context, strategies []Strategy) ([]Report, error) {
	reports := make([]Report, 0, len(strategies))
	for _, strategy := range strategies {
		report, err := r.RunStrategy(ctx, strategy)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *Runner) seedSource() rand.Source {
	if r.opts.Seed != 0 {
		return rand.NewSource(r.opts.Seed)
	}
	return rand.NewSource(time.Now().UnixNano())
}
