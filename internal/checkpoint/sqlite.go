package checkpoint

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLite is the default Store: a single-file seen-set under the data dir.
type SQLite struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	external_id TEXT PRIMARY KEY,
	seen_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// NewSQLite opens (or creates) the checkpoint database at path and
// configures WAL mode.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "checkpoint: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "checkpoint: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "checkpoint: migrate")
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) HasSeen(ctx context.Context, externalID string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM checkpoints WHERE external_id = ?`, externalID,
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, eris.Wrapf(err, "checkpoint: has seen %s", externalID)
	}
	return true, nil
}

func (s *SQLite) MarkSeen(ctx context.Context, externalID string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO checkpoints (external_id, seen_at) VALUES (?, ?)
		 ON CONFLICT (external_id) DO NOTHING`,
		externalID, time.Now().UTC(),
	)
	return eris.Wrapf(err, "checkpoint: mark seen %s", externalID)
}

func (s *SQLite) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM checkpoints`).Scan(&n)
	return n, eris.Wrap(err, "checkpoint: count")
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
