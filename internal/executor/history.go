package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// HistoryRow is one completed (or failed) file import.
type HistoryRow struct {
	ID          pgtype.UUID
	FileName    string
	FileSHA256  string
	Tables      int
	Records     int
	Batches     int
	Failed      int
	Diagnostics int
	Status      string
	StartedAt   pgtype.Timestamptz
	FinishedAt  pgtype.Timestamptz
}

const historySchema = `
CREATE TABLE IF NOT EXISTS ingest_history (
	id UUID PRIMARY KEY,
	file_name TEXT NOT NULL,
	file_sha256 TEXT NOT NULL DEFAULT '',
	tables INT NOT NULL DEFAULT 0,
	records INT NOT NULL DEFAULT 0,
	batches INT NOT NULL DEFAULT 0,
	failed INT NOT NULL DEFAULT 0,
	diagnostics INT NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	started_at TIMESTAMPTZ NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`

// EnsureHistorySchema creates the ingest_history table if missing.
func EnsureHistorySchema(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, historySchema); err != nil {
		return fmt.Errorf("ensure ingest_history: %w", err)
	}
	return nil
}

// NewHistoryID returns a fresh row ID.
func NewHistoryID() pgtype.UUID {
	return pgtype.UUID{Bytes: [16]byte(uuid.New()), Valid: true}
}

// Timestamp wraps t for the history columns.
func Timestamp(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}

// RecordHistory inserts one history row.
func RecordHistory(ctx context.Context, db DBTX, row HistoryRow) error {
	_, err := db.Exec(ctx, `
		INSERT INTO ingest_history
			(id, file_name, file_sha256, tables, records, batches, failed, diagnostics, status, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		row.ID, row.FileName, row.FileSHA256, row.Tables, row.Records, row.Batches,
		row.Failed, row.Diagnostics, row.Status, row.StartedAt, row.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("record history: %w", err)
	}
	return nil
}

// ListHistory returns the most recent imports, newest first.
func ListHistory(ctx context.Context, db DBTX, limit int) ([]HistoryRow, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Query(ctx, `
		SELECT id, file_name, file_sha256, tables, records, batches, failed, diagnostics, status, started_at, finished_at
		FROM ingest_history
		ORDER BY finished_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []HistoryRow
	for rows.Next() {
		var r HistoryRow
		if err := rows.Scan(
			&r.ID, &r.FileName, &r.FileSHA256, &r.Tables, &r.Records, &r.Batches,
			&r.Failed, &r.Diagnostics, &r.Status, &r.StartedAt, &r.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
