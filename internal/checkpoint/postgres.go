package checkpoint

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lanceiro/radar-cli/internal/db"
)

// Postgres keeps the seen-set in the main database for operators who want a
// single backing store. The checkpoints table ships with the db migrations.
type Postgres struct {
	pool db.Pool
}

// NewPostgres wraps an existing pool; the caller keeps ownership of it.
func NewPostgres(pool db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (s *Postgres) HasSeen(ctx context.Context, externalID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM checkpoints WHERE external_id = $1)`,
		externalID,
	).Scan(&exists)
	return exists, eris.Wrapf(err, "checkpoint: has seen %s", externalID)
}

func (s *Postgres) MarkSeen(ctx context.Context, externalID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO checkpoints (external_id, seen_at) VALUES ($1, $2)
		 ON CONFLICT (external_id) DO NOTHING`,
		externalID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "checkpoint: mark seen %s", externalID)
}

func (s *Postgres) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM checkpoints`).Scan(&n)
	return n, eris.Wrap(err, "checkpoint: count")
}

// Close is a no-op; the shared pool is closed by whoever opened it.
func (s *Postgres) Close() error { return nil }
