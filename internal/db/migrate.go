package db

import (
	"context"
	"embed"
	"io/fs"
	"slices"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// migrationLock is the advisory lock key serializing schema changes when
// two processes race a deploy.
const migrationLock = 7245103

// Migrate brings the schema current: it applies, in filename order, every
// embedded migration the schema_migrations table has not recorded yet.
func Migrate(ctx context.Context, pool Pool) error {
	log := zap.L().With(zap.String("component", "db.migrate"))

	if _, err := pool.Exec(ctx, "SELECT pg_advisory_lock($1)", migrationLock); err != nil {
		return eris.Wrap(err, "db: acquire migration advisory lock")
	}
	defer func() {
		if _, err := pool.Exec(ctx, "SELECT pg_advisory_unlock($1)", migrationLock); err != nil {
			log.Warn("db: release migration advisory lock", zap.Error(err))
		}
	}()

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id         SERIAL PRIMARY KEY,
			filename   TEXT NOT NULL UNIQUE,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`); err != nil {
		return eris.Wrap(err, "db: ensure migration table")
	}

	applied, err := appliedMigrations(ctx, pool)
	if err != nil {
		return err
	}

	pending, err := pendingMigrations(applied)
	if err != nil {
		return err
	}

	for _, name := range pending {
		if err := applyMigration(ctx, pool, name); err != nil {
			return err
		}
		log.Info("migration applied", zap.String("file", name))
	}
	return nil
}

// pendingMigrations lists embedded migration files not yet applied, sorted
// so zero-padded filenames run in numeric order.
func pendingMigrations(applied map[string]bool) ([]string, error) {
	entries, err := fs.ReadDir(migrationFS, "migrations")
	if err != nil {
		return nil, eris.Wrap(err, "db: read migration dir")
	}

	var pending []string
	for _, e := range entries {
		if !applied[e.Name()] {
			pending = append(pending, e.Name())
		}
	}
	slices.Sort(pending)
	return pending, nil
}

func applyMigration(ctx context.Context, pool Pool, name string) error {
	data, err := migrationFS.ReadFile("migrations/" + name)
	if err != nil {
		return eris.Wrapf(err, "db: read migration %s", name)
	}
	if _, err := pool.Exec(ctx, string(data)); err != nil {
		return eris.Wrapf(err, "db: apply migration %s", name)
	}
	if _, err := pool.Exec(ctx,
		"INSERT INTO schema_migrations (filename) VALUES ($1)", name,
	); err != nil {
		return eris.Wrapf(err, "db: record migration %s", name)
	}
	return nil
}

func appliedMigrations(ctx context.Context, pool Pool) (map[string]bool, error) {
	rows, err := pool.Query(ctx, "SELECT filename FROM schema_migrations")
	if err != nil {
		return nil, eris.Wrap(err, "db: query applied migrations")
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, eris.Wrap(err, "db: scan migration row")
		}
		applied[name] = true
	}
	return applied, rows.Err()
}
