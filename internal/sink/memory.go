package sink

import (
	"context"
	"sync"

	"github.com/fluxload/fluxload/pkg/types"
)

// MemorySink records everything pushed into it. Used by tests and
// benchmarks in place of a live database.
type MemorySink struct {
	mu      sync.Mutex
	streams [][]byte
	rows    []types.Row
	bytes   int64
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// CopyStream stores a copy of the stream.
func (s *MemorySink) CopyStream(ctx context.Context, table string, stream []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(stream))
	copy(buf, stream)
	s.streams = append(s.streams, buf)
	s.bytes += int64(len(stream))
	return nil
}

// InsertRows stores the rows.
func (s *MemorySink) InsertRows(ctx context.Context, table string, rows []types.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, rows...)
	return nil
}

// InsertValues stores the rows; the memory sink does not distinguish the
// two row-based paths.
func (s *MemorySink) InsertValues(ctx context.Context, table string, rows []types.Row) error {
	return s.InsertRows(ctx, table, rows)
}

// TableSize reports the total stream bytes accepted so far.
func (s *MemorySink) TableSize(ctx context.Context, table string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bytes, nil
}

// Streams returns the accepted COPY buffers in arrival order.
func (s *MemorySink) Streams() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.streams))
	copy(out, s.streams)
	return out
}

// Rows returns all rows accepted through the row-based paths.
func (s *MemorySink) Rows() []types.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Row, len(s.rows))
	copy(out, s.rows)
	return out
}

// Close is a no-op.
func (s *MemorySink) Close(ctx context.Context) error {
	return nil
}

var (
	_ Sink       = (*MemorySink)(nil)
	_ TableSizer = (*MemorySink)(nil)
)
