// Package generator produces synthetic sensor readings for load runs.
package generator

import (
	"math"
	"math/rand"
	"time"

	"github.com/fluxload/fluxload/pkg/types"
)

const (
	// MaxSensors bounds the sensor id cycle, [1, MaxSensors].
	MaxSensors = 32

	// DefaultTick is the timestamp advance between consecutive rows.
	DefaultTick = 100 * time.Millisecond

	// TemperatureJitter bounds the uniform noise added to the base value.
	TemperatureJitter = 5.0
)

// Config describes a generation sequence.
type Config struct {
	// Start is the timestamp of the first row.
	Start time.Time

	// BaseTemp is the value the per-row noise perturbs.
	BaseTemp float64

	// Tick is the per-row timestamp advance (DefaultTick when zero).
	Tick time.Duration

	// Source is the random source for temperature noise. Passing the same
	// seeded source reproduces a run exactly; nil falls back to a
	// time-seeded source.
	Source rand.Source
}

// Generator yields batches of rows with deterministic timestamp and
// sensor-id progression. Reconstructing a generator with the same config
// restarts the identical sequence.
type Generator struct {
	cfg     Config
	rnd     *rand.Rand
	current time.Time
	counter int64
}

// New creates a generator positioned at the start of its sequence.
func New(cfg Config) *Generator {
	if cfg.Tick <= 0 {
		cfg.Tick = DefaultTick
	}
	source := cfg.Source
	if source == nil {
		source = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{
		cfg:     cfg,
		rnd:     rand.New(source),
		current: cfg.Start,
	}
}

// NextBatch produces the next size rows of the sequence. Timestamps advance
// one tick per row, sensor ids cycle 1..MaxSensors on the running counter,
// and temperatures are the base value plus bounded noise rounded to 2
// decimal places.
func (g *Generator) NextBatch(size int) []types.Row {
	rows := make([]types.Row, size)
	for i := range rows {
		noise := (g.rnd.Float64()*2 - 1) * TemperatureJitter
		rows[i] = types.Row{
			Created:     g.current,
			SensorID:    int32(g.counter%MaxSensors) + 1,
			Temperature: math.Round((g.cfg.BaseTemp+noise)*100) / 100,
		}
		g.counter++
		g.current = g.current.Add(g.cfg.Tick)
	}
	return rows
}

// Emitted returns the total number of rows generated so far.
func (g *Generator) Emitted() int64 {
	return g.counter
}
