package sink

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"

	apperrors "github.com/fluxload/fluxload/internal/errors"
	"github.com/fluxload/fluxload/pkg/types"
)

// PostgresSink pushes batches into PostgreSQL over a single pgx connection.
// pgx is used rather than database/sql because the bulk path needs raw
// protocol access: a caller-built COPY BINARY stream can only enter through
// PgConn's CopyFrom.
type PostgresSink struct {
	conn *pgx.Conn
}

// NewPostgresSink connects to PostgreSQL using the given DSN.
func NewPostgresSink(ctx context.Context, dsn string) (*PostgresSink, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, apperrors.NewSinkError(apperrors.CodeConnectFailed, "failed to connect to postgres", err)
	}
	return &PostgresSink{conn: conn}, nil
}

// EnsureTable creates the metrics table if it does not exist.
func (s *PostgresSink) EnsureTable(ctx context.Context, table string) error {
	ddl := fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (created timestamptz NOT NULL, sensor_id int4 NOT NULL, temperature numeric(10,2) NOT NULL)",
		table,
	)
	if _, err := s.conn.Exec(ctx, ddl); err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to create table "+table, err)
	}
	return nil
}

// CopyStream streams a prebuilt COPY BINARY buffer into the table.
func (s *PostgresSink) CopyStream(ctx context.Context, table string, stream []byte) error {
	sql := fmt.Sprintf("COPY %s FROM STDIN WITH (FORMAT binary)", table)
	if _, err := s.conn.PgConn().CopyFrom(ctx, bytes.NewReader(stream), sql); err != nil {
		return apperrors.NewSinkError(apperrors.CodeCopyFailed, "copy into "+table+" failed", err)
	}
	return nil
}

// InsertRows inserts the batch one prepared-statement execution per row
// inside a single transaction.
func (s *PostgresSink) InsertRows(ctx context.Context, table string, rows []types.Row) error {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to begin transaction", err)
	}
	defer tx.Rollback(ctx)

	name := "insert_" + table
	sql := fmt.Sprintf("INSERT INTO %s VALUES ($1, $2, $3)", table)
	if _, err := tx.Prepare(ctx, name, sql); err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to prepare insert", err)
	}

	for _, row := range rows {
		// Temperature travels as its 2-decimal rendering so the numeric
		// column receives the same value the binary path encodes.
		temp := strconv.FormatFloat(row.Temperature, 'f', 2, 64)
		if _, err := tx.Exec(ctx, name, row.Created, row.SensorID, temp); err != nil {
			return apperrors.NewSinkError(apperrors.CodeInsertFailed, "insert into "+table+" failed", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to commit insert batch", err)
	}
	return nil
}

// InsertValues inserts the batch as one INSERT ... VALUES statement with
// inline literals.
func (s *PostgresSink) InsertValues(ctx context.Context, table string, rows []types.Row) error {
	if len(rows) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(table)
	sb.WriteString(" VALUES ")
	for i, row := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "('%s'::timestamptz, %d, %s::numeric(10,2))",
			row.Created.UTC().Format("2006-01-02 15:04:05.999999+00"),
			row.SensorID,
			strconv.FormatFloat(row.Temperature, 'f', 2, 64),
		)
	}

	if _, err := s.conn.Exec(ctx, sb.String()); err != nil {
		return apperrors.NewSinkError(apperrors.CodeInsertFailed, "multi-value insert into "+table+" failed", err)
	}
	return nil
}

// TableSize reports the total relation size of the table in bytes.
func (s *PostgresSink) TableSize(ctx context.Context, table string) (int64, error) {
	var size int64
	err := s.conn.QueryRow(ctx, "SELECT pg_total_relation_size($1::regclass)", table).Scan(&size)
	if err != nil {
		return 0, apperrors.NewSinkError(apperrors.CodeInsertFailed, "failed to read size of "+table, err)
	}
	return size, nil
}

// Close closes the connection.
func (s *PostgresSink) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

var (
	_ Sink       = (*PostgresSink)(nil)
	_ TableSizer = (*PostgresSink)(nil)
)
