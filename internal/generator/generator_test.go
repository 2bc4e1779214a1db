package generator

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(seed int64) Config {
	return Config{
		Start:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		BaseTemp: 20.0,
		Tick:     100 * time.Millisecond,
		Source:   rand.NewSource(seed),
	}
}

// The same seed must reproduce an identical sequence, batch boundaries
// included.
func TestGeneratorDeterministic(t *testing.T) {
	a := New(testConfig(42))
	b := New(testConfig(42))

	one := a.NextBatch(500)
	two := b.NextBatch(250)
	two = append(two, b.NextBatch(250)...)

	assert.Equal(t, one, two)
	assert.Equal(t, int64(500), a.Emitted())
	assert.Equal(t, int64(500), b.Emitted())
}

func TestGeneratorSensorCycle(t *testing.T) {
	g := New(testConfig(1))
	rows := g.NextBatch(MaxSensors * 2)

	for i, row := range rows {
		want := int32(i%MaxSensors) + 1
		require.Equal(t, want, row.SensorID, "row %d", i)
	}
}

// The counter runs across batches: a batch size that is not a multiple of
// the sensor count must not reset the cycle.
func TestGeneratorSensorCycleAcrossBatches(t *testing.T) {
	g := New(testConfig(1))
	g.NextBatch(5)
	rows := g.NextBatch(3)

	assert.Equal(t, int32(6), rows[0].SensorID)
	assert.Equal(t, int32(7), rows[1].SensorID)
	assert.Equal(t, int32(8), rows[2].SensorID)
}

func TestGeneratorTimestamps(t *testing.T) {
	cfg := testConfig(7)
	g := New(cfg)
	rows := g.NextBatch(10)

	for i, row := range rows {
		want := cfg.Start.Add(time.Duration(i) * cfg.Tick)
		require.True(t, row.Created.Equal(want), "row %d: got %v want %v", i, row.Created, want)
	}

	// Next batch continues where the last one stopped
	next := g.NextBatch(1)
	assert.True(t, next[0].Created.Equal(cfg.Start.Add(10*cfg.Tick)))
}

func TestGeneratorTemperatureBounds(t *testing.T) {
	cfg := testConfig(99)
	g := New(cfg)

	for _, row := range g.NextBatch(10_000) {
		require.GreaterOrEqual(t, row.Temperature, cfg.BaseTemp-TemperatureJitter)
		require.LessOrEqual(t, row.Temperature, cfg.BaseTemp+TemperatureJitter)

		// Rounded to 2 decimal places (up to float representation error)
		cents := row.Temperature * 100
		require.InDelta(t, math.Round(cents), cents, 1e-6, "temperature %v not 2-decimal", row.Temperature)
	}
}

func TestGeneratorDefaults(t *testing.T) {
	g := New(Config{Start: time.Now(), BaseTemp: 20})
	rows := g.NextBatch(2)
	assert.Equal(t, DefaultTick, rows[1].Created.Sub(rows[0].Created))
}
