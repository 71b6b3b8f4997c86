// Package jobs is a Postgres-backed delayed-job queue: callers enqueue a
// (kind, ref, run-after) row and the worker claims due rows with
// SKIP LOCKED. Delivery is at-least-once and may be late; handlers are
// expected to be idempotent.
package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Kind string

const (
	// KindCompleteAction fires when an artist's timed activity reaches
	// its end time. Ref is the artist id.
	KindCompleteAction Kind = "complete_action"
	// KindStartScheduled fires when a scheduled future activity reaches
	// its start time. Ref is the scheduled-action id.
	KindStartScheduled Kind = "start_scheduled"
)

type Job struct {
	ID    int64
	Kind  Kind
	RefID int64
	RunAt time.Time
}

// Execer is satisfied by pgx.Tx and *pgxpool.Pool, so triggers can be
// enqueued inside the transaction that creates the work they refer to.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Enqueue arranges for a trigger to fire no earlier than runAt.
func Enqueue(ctx context.Context, q Execer, kind Kind, refID int64, runAt time.Time) error {
	_, err := q.Exec(ctx, `
		INSERT INTO label.jobs (kind, ref_id, run_at)
		VALUES ($1, $2, $3)
	`, kind, refID, runAt)
	return err
}

type Queue struct {
	db  *pgxpool.Pool
	log *slog.Logger
}

func New(db *pgxpool.Pool, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{db: db, log: logger}
}

// RunDue claims and dispatches jobs whose run_at has passed. Claimed rows
// are deleted before the handler runs; a handler failure is logged and the
// batch continues, relying on the sweep pass as the recovery path for lost
// completion triggers. Returns how many jobs were dispatched.
func (q *Queue) RunDue(ctx context.Context, now time.Time, handle func(ctx context.Context, job Job) error) (int, error) {
	tx, err := q.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT id, kind, ref_id, run_at
		FROM label.jobs
		WHERE run_at <= $1
		ORDER BY run_at
		LIMIT 50
		FOR UPDATE SKIP LOCKED
	`, now)
	if err != nil {
		return 0, err
	}
	var due []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(&j.ID, &j.Kind, &j.RefID, &j.RunAt); err != nil {
			rows.Close()
			return 0, err
		}
		due = append(due, j)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	if len(due) == 0 {
		return 0, tx.Commit(ctx)
	}

	for _, j := range due {
		if _, err := tx.Exec(ctx, `DELETE FROM label.jobs WHERE id = $1`, j.ID); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}

	dispatched := 0
	var errs []error
	for _, j := range due {
		if err := handle(ctx, j); err != nil {
			q.log.Error("job handler failed", "job_id", j.ID, "kind", j.Kind, "ref_id", j.RefID, "err", err)
			errs = append(errs, err)
			continue
		}
		dispatched++
	}
	return dispatched, errors.Join(errs...)
}
