package benchmark

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/fluxload/fluxload/internal/bench"
	"github.com/fluxload/fluxload/internal/capture"
	"github.com/fluxload/fluxload/internal/generator"
	"github.com/fluxload/fluxload/internal/pgcopy"
	"github.com/fluxload/fluxload/internal/sink"
)

// BenchmarkBuildStream measures COPY BINARY encoding throughput for a
// 10k-row batch, the default batch size of the harness.
func BenchmarkBuildStream(b *testing.B) {
	rows := generateTestRows(10_000)

	b.ResetTimer()
	b.ReportAllocs()

	var bytes int
	for i := 0; i < b.N; i++ {
		stream, err := pgcopy.BuildStream(rows)
		if err != nil {
			b.Fatal(err)
		}
		bytes = len(stream)
	}

	b.ReportMetric(float64(len(rows)*b.N)/b.Elapsed().Seconds(), "rows/sec")
	b.SetBytes(int64(bytes))
}

// BenchmarkEncodeNumeric measures the hot path of the stream encoder.
func BenchmarkEncodeNumeric(b *testing.B) {
	values := make([]float64, 1024)
	rnd := rand.New(rand.NewSource(42))
	for i := range values {
		values[i] = 15 + rnd.Float64()*10
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		num, err := pgcopy.EncodeNumericScaled(values[i%len(values)], 2)
		if err != nil {
			b.Fatal(err)
		}
		_ = num.Bytes()
	}
}

func BenchmarkGeneratorNextBatch(b *testing.B) {
	gen := generator.New(generator.Config{
		Start:    time.Now(),
		BaseTemp: 20.0,
		Source:   rand.NewSource(42),
	})

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		gen.NextBatch(10_000)
	}

	b.ReportMetric(float64(10_000*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkCopyStrategyMemory measures the full generate-encode-push loop
// against the in-memory sink, isolating harness overhead from database time.
func BenchmarkCopyStrategyMemory(b *testing.B) {
	opts := bench.Options{
		Table:      "metrics",
		BatchSize:  1_000,
		BatchCount: 10,
		BaseTemp:   20,
		Seed:       42,
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		runner := bench.NewRunner(sink.NewMemorySink(), opts, nil, nil)
		if _, err := runner.RunStrategy(context.Background(), bench.StrategyCopy); err != nil {
			b.Fatal(err)
		}
	}

	b.ReportMetric(float64(opts.BatchSize*opts.BatchCount*b.N)/b.Elapsed().Seconds(), "rows/sec")
}

// BenchmarkCaptureBatch measures capture overhead per stored batch,
// compression included.
func BenchmarkCaptureBatch(b *testing.B) {
	store, cleanup := getBenchmarkStorage(b)
	defer cleanup()

	stream, err := pgcopy.BuildStream(generateTestRows(10_000))
	if err != nil {
		b.Fatal(err)
	}

	capturer := capture.NewCapturer(store, "bench", "metrics", true)
	ctx := context.Background()

	b.ResetTimer()
	b.ReportAllocs()
	b.SetBytes(int64(len(stream)))

	for i := 0; i < b.N; i++ {
		if err := capturer.CaptureBatch(ctx, 10_000, stream); err != nil {
			b.Fatal(err)
		}
	}
}
