// Package runlog persists execution-run telemetry: one row per collect or
// audit invocation, with counters and a terminal status.
package runlog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/lanceiro/radar-cli/internal/db"
	"github.com/lanceiro/radar-cli/internal/model"
)

// Log provides read/write access to the runs table.
type Log struct {
	pool db.Pool
}

// New creates a Log backed by the given connection pool.
func New(pool db.Pool) *Log {
	return &Log{pool: pool}
}

// Start records the beginning of a run and returns its id.
func (l *Log) Start(ctx context.Context, kind model.RunKind) (string, error) {
	id := uuid.New().String()
	_, err := l.pool.Exec(ctx,
		`INSERT INTO runs (id, kind, status, started_at) VALUES ($1, $2, $3, now())`,
		id, string(kind), string(model.RunRunning),
	)
	if err != nil {
		return "", eris.Wrapf(err, "runlog: start %s run", kind)
	}
	return id, nil
}

// Complete marks a run as finished and stores its final counters.
func (l *Log) Complete(ctx context.Context, runID string, c model.Counters) error {
	tag, err := l.pool.Exec(ctx,
		`UPDATE runs SET status = $1, finished_at = now(), pages = $2, seen = $3,
			new = $4, updated = $5, published = $6, quarantined = $7, failed = $8
		 WHERE id = $9`,
		string(model.RunCompleted), c.Pages, c.Seen, c.New, c.Updated,
		c.Published, c.Quarantined, c.Failed, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

// Fail marks a run as failed, keeping whatever counters accumulated before
// the run-level error.
func (l *Log) Fail(ctx context.Context, runID string, c model.Counters, errMsg string) error {
	tag, err := l.pool.Exec(ctx,
		`UPDATE runs SET status = $1, finished_at = now(), pages = $2, seen = $3,
			new = $4, updated = $5, published = $6, quarantined = $7, failed = $8,
			error = $9
		 WHERE id = $10`,
		string(model.RunFailed), c.Pages, c.Seen, c.New, c.Updated,
		c.Published, c.Quarantined, c.Failed, errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

// LastSuccess returns the started_at of the most recent completed run of a
// kind, or nil when the kind has never completed. The collect command uses
// it to default the listing window.
func (l *Log) LastSuccess(ctx context.Context, kind model.RunKind) (*time.Time, error) {
	var t time.Time
	err := l.pool.QueryRow(ctx,
		`SELECT started_at FROM runs
		 WHERE kind = $1 AND status = $2
		 ORDER BY started_at DESC LIMIT 1`,
		string(kind), string(model.RunCompleted),
	).Scan(&t)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "runlog: last success for %s", kind)
	}
	return &t, nil
}

// List returns recent runs, newest first.
func (l *Log) List(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.pool.Query(ctx,
		`SELECT id, kind, status, started_at, finished_at, pages, seen, new,
			updated, published, quarantined, failed, error
		 FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		if err := rows.Scan(
			&r.ID, &r.Kind, &r.Status, &r.StartedAt, &r.FinishedAt,
			&r.Counters.Pages, &r.Counters.Seen, &r.Counters.New,
			&r.Counters.Updated, &r.Counters.Published,
			&r.Counters.Quarantined, &r.Counters.Failed, &r.Error,
		); err != nil {
			return nil, eris.Wrap(err, "runlog: scan run")
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "runlog: list runs iterate")
}
