package pgcopy

import (
	"encoding/binary"
	"strconv"

	apperrors "github.com/fluxload/fluxload/internal/errors"
	"github.com/fluxload/fluxload/pkg/types"
)

// signature is the fixed 11-byte COPY BINARY header magic.
var signature = []byte("PGCOPY\n\xff\r\n\x00")

const (
	// fieldsPerRow matches the three-column metrics schema.
	fieldsPerRow = 3

	// TemperatureScale is the display scale of the temperature column,
	// matching numeric(10,2).
	TemperatureScale = 2

	// HeaderSize is signature + flags field + header extension length.
	HeaderSize = 11 + 4 + 4

	// TrailerSize is the 2-byte -1 end marker.
	TrailerSize = 2
)

// StreamBuilder assembles rows into a single COPY BINARY buffer: fixed
// header, per-row field count and length-prefixed fields, trailing end
// marker. A builder holds no shared state; concurrent batches each need
// their own builder.
type StreamBuilder struct {
	buf      []byte
	rows     int
	finished bool
}

// NewStreamBuilder returns a builder with the stream header already written.
func NewStreamBuilder() *StreamBuilder {
	buf := make([]byte, 0, 256)
	buf = append(buf, signature...)
	buf = binary.BigEndian.AppendUint32(buf, 0) // flags
	buf = binary.BigEndian.AppendUint32(buf, 0) // header extension length
	return &StreamBuilder{buf: buf}
}

// AppendRow encodes a row record: field count, then the timestamp, sensor-id
// and temperature fields, each as a 4-byte length followed by the payload.
// On error the buffer is left exactly as it was before the call.
func (b *StreamBuilder) AppendRow(row types.Row) error {
	if b.finished {
		return apperrors.NewEncodingError(apperrors.CodeBuilderFinished, "cannot append row after Finish")
	}

	micros, err := EpochMicros(row.Created)
	if err != nil {
		return err
	}
	num, err := EncodeNumericScaled(row.Temperature, TemperatureScale)
	if err != nil {
		return err
	}
	numBytes := num.Bytes()

	b.buf = binary.BigEndian.AppendUint16(b.buf, fieldsPerRow)

	// created: timestamptz, 8-byte microsecond offset
	b.buf = binary.BigEndian.AppendUint32(b.buf, 8)
	b.buf = binary.BigEndian.AppendUint64(b.buf, uint64(micros))

	// sensor_id: int4
	b.buf = binary.BigEndian.AppendUint32(b.buf, 4)
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(row.SensorID))

	// temperature: numeric(10,2)
	b.buf = binary.BigEndian.AppendUint32(b.buf, uint32(len(numBytes)))
	b.buf = append(b.buf, numBytes...)

	b.rows++
	return nil
}

// RowCount returns the number of rows appended so far.
func (b *StreamBuilder) RowCount() int {
	return b.rows
}

// Size returns the current buffer length in bytes, excluding the trailer
// until Finish has been called.
func (b *StreamBuilder) Size() int {
	return len(b.buf)
}

// Finish appends the -1 end marker and returns the completed buffer. The
// builder rejects further appends; a zero-row stream is valid and is exactly
// header + trailer.
func (b *StreamBuilder) Finish() []byte {
	if !b.finished {
		b.buf = binary.BigEndian.AppendUint16(b.buf, 0xFFFF) // int16(-1)
		b.finished = true
	}
	return b.buf
}

// BuildStream encodes a batch of rows as one COPY BINARY buffer. Any row
// failure aborts the build and discards the partial buffer; nothing
// partially encoded ever reaches a sink.
func BuildStream(rows []types.Row) ([]byte, error) {
	b := NewStreamBuilder()
	for i, row := range rows {
		if err := b.AppendRow(row); err != nil {
			return nil, apperrors.Wrap(apperrors.GetCategory(err), apperrors.GetCode(err), "row "+strconv.Itoa(i), err)
		}
	}
	return b.Finish(), nil
}
