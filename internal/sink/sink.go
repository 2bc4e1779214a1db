// Package sink abstracts the destinations a load run pushes rows into.
// The codec core only produces bytes or row slices; everything that touches
// a database connection lives behind the Sink interface.
package sink

import (
	"context"

	"github.com/fluxload/fluxload/pkg/types"
)

// Sink accepts batches either as a raw COPY BINARY stream or as discrete
// rows. Implementations surface transport errors verbatim; nothing in the
// core interprets or retries them.
type Sink interface {
	// CopyStream feeds a complete COPY BINARY buffer to the target table.
	CopyStream(ctx context.Context, table string, stream []byte) error

	// InsertRows inserts the batch row by row inside one transaction using
	// a prepared statement.
	InsertRows(ctx context.Context, table string, rows []types.Row) error

	// InsertValues inserts the batch as a single multi-row VALUES statement.
	InsertValues(ctx context.Context, table string, rows []types.Row) error

	// Close releases the underlying connection.
	Close(ctx context.Context) error
}

// TableSizer is implemented by sinks that can report the on-disk size of a
// table, used by the harness to derive throughput.
type TableSizer interface {
	TableSize(ctx context.Context, table string) (int64, error)
}
