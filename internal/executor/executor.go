// Package executor replays parsed INSERT batches against PostgreSQL.
// All batches from one source run inside a single transaction; each batch
// gets its own savepoint so one bad batch does not poison the rest.
package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fuhsing/sqlingest/internal/logging"
	"github.com/fuhsing/sqlingest/internal/sqldump"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Beginner opens transactions. Satisfied by *pgxpool.Pool.
type Beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// BatchFailure describes one batch that was rolled back.
type BatchFailure struct {
	Table   string `json:"table"`
	Records int    `json:"records"`
	Reason  string `json:"reason"`
}

// Result summarizes one ExecuteBatches call.
type Result struct {
	Executed int            `json:"executed"`
	Inserted int            `json:"inserted"`
	Failed   int            `json:"failed"`
	Failures []BatchFailure `json:"failures,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// Executor runs batches against a database handle.
type Executor struct {
	db Beginner
}

// New returns an Executor backed by db.
func New(db Beginner) *Executor {
	return &Executor{db: db}
}

// ExecuteBatches applies batches in order inside one transaction. A batch
// that fails is rolled back to its savepoint, recorded as a failure, and the
// remaining batches continue. The transaction commits whatever succeeded.
// The returned error covers transaction mechanics and cancellation only;
// per-batch failures are data, not errors.
func (e *Executor) ExecuteBatches(ctx context.Context, batches []sqldump.Batch) (Result, error) {
	var result Result
	if len(batches) == 0 {
		return result, nil
	}
	logger := logging.FromContext(ctx)
	start := time.Now()

	tx, err := e.db.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for i, b := range batches {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		savepointName := fmt.Sprintf("sp_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+savepointName); err != nil {
			return result, fmt.Errorf("create savepoint: %w", err)
		}

		if _, err := tx.Exec(ctx, b.StatementText); err != nil {
			_, _ = tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+savepointName)
			result.Failed++
			result.Failures = append(result.Failures, BatchFailure{
				Table:   b.Table,
				Records: b.RecordCount,
				Reason:  err.Error(),
			})
			logger.Warn("batch rolled back",
				"table", b.Table,
				"records", b.RecordCount,
				"error", err,
			)
			continue
		}

		_, _ = tx.Exec(ctx, "RELEASE SAVEPOINT "+savepointName)
		result.Executed++
		result.Inserted += b.RecordCount
	}

	if err := tx.Commit(ctx); err != nil {
		return result, fmt.Errorf("commit: %w", err)
	}

	result.Duration = time.Since(start)
	logger.Info("batches executed",
		"executed", result.Executed,
		"inserted", result.Inserted,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, nil
}
