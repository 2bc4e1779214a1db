package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/fluxload/fluxload/internal/errors"
	"github.com/fluxload/fluxload/pkg/types"
)

// SQLiteSink is a local comparison target so the harness can run without a
// PostgreSQL instance. It supports the row-based strategies only: the COPY
// stream is PostgreSQL wire format and has no sqlite equivalent.
type SQLiteSink struct {
	db   *sql.DB
	path string
}

// NewSQLiteSink opens (or creates) the database file at path.
func NewSQLiteSink(path string) (*SQLiteSink, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, apperrors.NewSinkError(apperrors.CodeConnectFailed, "failed to open sqlite database", err)
	}
	return &SQLiteSink{db: db, path: path}, nil
}

// EnsureTable creates the metrics table if it does not exist.
func (s *SQLiteSink) EnsureTable(ctx context.Context, table string) error {
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (created TIMESTAMP NOT NULL, sensor_id INTEGER NOT NULL, temperature NUMERIC NOT NULL)",
		table,
	)
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to create table "+table, err)
	}
	return nil
}

// CopyStream is unsupported: binary COPY is PostgreSQL-specific.
func (s *SQLiteSink) CopyStream(ctx context.Context, table string, stream []byte) error {
	return apperrors.New(apperrors.ErrCategorySink, apperrors.CodeUnsupportedPath, "sqlite sink does not accept COPY BINARY streams")
}

// InsertRows inserts the batch row by row in one transaction.
func (s *SQLiteSink) InsertRows(ctx context.Context, table string, rows []types.Row) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (?, ?, ?)", table))
	if err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to prepare insert", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		temp := strconv.FormatFloat(row.Temperature, 'f', 2, 64)
		if _, err := stmt.ExecContext(ctx, row.Created, row.SensorID, temp); err != nil {
			return apperrors.NewSinkError(apperrors.CodeInsertFailed, "insert into "+table+" failed", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to commit insert batch", err)
	}
	return nil
}

// InsertValues inserts the batch as one multi-row VALUES statement.
func (s *SQLiteSink) InsertValues(ctx context.Context, table string, rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" VALUES ")
	args := make([]any, 0, len(rows)*3)
	for i, row := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(?, ?, ?)")
		args = append(args, row.Created, row.SensorID, strconv.FormatFloat(row.Temperature, 'f', 2, 64))
	}

	if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "multi-value insert into "+table+" failed", err)
	}
	return nil
}

// TableSize approximates table size with the database file size; sqlite has
// no per-table on-disk accounting without the dbstat extension.
func (s *SQLiteSink) TableSize(ctx context.Context, table string) (int64, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0, apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to stat database file", err)
	}
	return info.Size(), nil
}

// Close closes the database.
func (s *SQLiteSink) Close(ctx context.Context) error {
	return s.db.Close()
}

var (
	_ Sink       = (*SQLiteSink)(nil)
	_ TableSizer = (*SQLiteSink)(nil)
)
