package pgcopy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/fluxload/fluxload/internal/errors"
	"github.com/fluxload/fluxload/pkg/types"
)

// TestEmptyStream checks the degenerate stream: header and trailer only,
// exactly 21 bytes.
func TestEmptyStream(t *testing.T) {
	stream, err := BuildStream(nil)
	require.NoError(t, err)

	expected := append([]byte{}, signature...)
	expected = append(expected,
		0x00, 0x00, 0x00, 0x00, // flags
		0x00, 0x00, 0x00, 0x00, // header extension length
		0xFF, 0xFF, // end marker
	)
	assert.Equal(t, expected, stream)
	assert.Len(t, stream, HeaderSize+TrailerSize)
}

// TestSingleRowStream pins the full byte layout for one known row:
// one day after the timestamp epoch, sensor 5, temperature 23.50.
func TestSingleRowStream(t *testing.T) {
	row := types.Row{
		Created:     Epoch.Add(24 * time.Hour),
		SensorID:    5,
		Temperature: 23.5,
	}

	stream, err := BuildStream([]types.Row{row})
	require.NoError(t, err)

	expected := append([]byte{}, signature...)
	expected = append(expected,
		0x00, 0x00, 0x00, 0x00, // flags
		0x00, 0x00, 0x00, 0x00, // header extension length
		0x00, 0x03, // field count
		0x00, 0x00, 0x00, 0x08, // timestamp length
		0x00, 0x00, 0x00, 0x14, 0x1D, 0xD7, 0x60, 0x00, // 86400000000 us
		0x00, 0x00, 0x00, 0x04, // sensor id length
		0x00, 0x00, 0x00, 0x05,
		0x00, 0x00, 0x00, 0x0C, // numeric length
		0x00, 0x02, // ndigits
		0x00, 0x00, // weight
		0x00, 0x00, // sign
		0x00, 0x02, // dscale
		0x00, 0x17, // 23
		0x13, 0x88, // 5000
		0xFF, 0xFF, // end marker
	)
	assert.Equal(t, expected, stream)
}

func TestStreamBuilderCounts(t *testing.T) {
	b := NewStreamBuilder()
	assert.Equal(t, 0, b.RowCount())
	assert.Equal(t, HeaderSize, b.Size())

	row := types.Row{Created: Epoch, SensorID: 1, Temperature: 20.0}
	require.NoError(t, b.AppendRow(row))
	require.NoError(t, b.AppendRow(row))
	assert.Equal(t, 2, b.RowCount())

	stream := b.Finish()
	assert.Len(t, stream, b.Size())
}

// Building the same batch twice must produce byte-identical streams: replays
// depend on it.
func TestStreamDeterministic(t *testing.T) {
	rows := []types.Row{
		{Created: Epoch.Add(time.Hour), SensorID: 1, Temperature: 19.25},
		{Created: Epoch.Add(2 * time.Hour), SensorID: 2, Temperature: -3.5},
		{Created: Epoch.Add(3 * time.Hour), SensorID: 32, Temperature: 25.0},
	}

	a, err := BuildStream(rows)
	require.NoError(t, err)
	b, err := BuildStream(rows)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestAppendAfterFinish(t *testing.T) {
	b := NewStreamBuilder()
	first := b.Finish()

	err := b.AppendRow(types.Row{Created: Epoch, SensorID: 1, Temperature: 20})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeBuilderFinished, apperrors.GetCode(err))

	// Finish is idempotent: no second trailer
	assert.Equal(t, first, b.Finish())
}

// A bad row must abort the whole build; nothing partially encoded may leak.
func TestBuildStreamAbortsOnBadRow(t *testing.T) {
	rows := []types.Row{
		{Created: Epoch, SensorID: 1, Temperature: 20},
		{Created: Epoch, SensorID: 2, Temperature: math.NaN()},
	}

	stream, err := BuildStream(rows)
	require.Error(t, err)
	assert.Nil(t, stream)
	assert.Equal(t, apperrors.CodeNonFiniteValue, apperrors.GetCode(err))
}

// A failed append leaves the builder usable with its buffer untouched.
func TestAppendRowFailureLeavesBufferIntact(t *testing.T) {
	b := NewStreamBuilder()
	require.NoError(t, b.AppendRow(types.Row{Created: Epoch, SensorID: 1, Temperature: 20}))
	sizeBefore := b.Size()

	err := b.AppendRow(types.Row{Created: Epoch, SensorID: 2, Temperature: math.Inf(1)})
	require.Error(t, err)
	assert.Equal(t, sizeBefore, b.Size())
	assert.Equal(t, 1, b.RowCount())

	require.NoError(t, b.AppendRow(types.Row{Created: Epoch, SensorID: 3, Temperature: 21}))
	assert.Equal(t, 2, b.RowCount())
}

func TestStreamSizeFormula(t *testing.T) {
	rows := []types.Row{
		{Created: Epoch, SensorID: 1, Temperature: 23.5},
		{Created: Epoch.Add(time.Second), SensorID: 2, Temperature: 0},
	}

	stream, err := BuildStream(rows)
	require.NoError(t, err)

	want := HeaderSize + TrailerSize
	for _, row := range rows {
		num, err := EncodeNumericScaled(row.Temperature, TemperatureScale)
		require.NoError(t, err)
		// field count + (len+payload) per field
		want += 2 + (4 + 8) + (4 + 4) + (4 + len(num.Bytes()))
	}
	assert.Len(t, stream, want)
}
