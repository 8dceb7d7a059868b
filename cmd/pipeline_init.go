package main

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/lanceiro/radar-cli/internal/auditor"
	"github.com/lanceiro/radar-cli/internal/checkpoint"
	"github.com/lanceiro/radar-cli/internal/db"
	"github.com/lanceiro/radar-cli/internal/document"
	"github.com/lanceiro/radar-cli/internal/fetcher"
	"github.com/lanceiro/radar-cli/internal/miner"
	"github.com/lanceiro/radar-cli/internal/resilience"
	"github.com/lanceiro/radar-cli/internal/resolve"
	"github.com/lanceiro/radar-cli/internal/runlog"
	"github.com/lanceiro/radar-cli/internal/store"
	"github.com/lanceiro/radar-cli/pkg/pncp"
)

// radarPool opens the canonical Postgres pool and brings the schema current.
func radarPool(ctx context.Context) (*pgxpool.Pool, error) {
	if cfg.Store.DatabaseURL == "" {
		return nil, eris.New("no database_url configured (set store.database_url or RADAR_STORE_DATABASE_URL)")
	}

	pool, err := db.Connect(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return pool, nil
}

// initCheckpoint picks the seen-id set by configured driver. The postgres
// driver shares the canonical pool; sqlite lives under the data dir.
func initCheckpoint(pool db.Pool) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Driver {
	case "sqlite":
		return checkpoint.NewSQLite(cfg.CheckpointPath())
	case "postgres":
		return checkpoint.NewPostgres(pool), nil
	case "memory":
		return checkpoint.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported checkpoint driver: %s", cfg.Checkpoint.Driver)
	}
}

// loadRules reads the resolver rules file over the compiled-in defaults and
// applies the config min_year override.
func loadRules() (resolve.Rules, error) {
	rules, err := resolve.LoadRules(cfg.Rules.Path)
	if err != nil {
		return resolve.Rules{}, err
	}
	if cfg.Rules.MinYear > 0 {
		rules.MinYear = cfg.Rules.MinYear
	}
	return rules, nil
}

// initArchive builds the attachment archive and the PDF text extractor.
func initArchive() (*document.Store, document.Extractor, error) {
	archive, err := document.NewStore(cfg.ArchiveDir())
	if err != nil {
		return nil, nil, err
	}
	return archive, document.NewPdfToText(cfg.OCR.PdfToTextPath), nil
}

// initPNCP builds the source API client from config.
func initPNCP() pncp.Client {
	return pncp.NewClient(
		pncp.WithBaseURL(cfg.PNCP.BaseURL),
		pncp.WithItemBaseURL(cfg.PNCP.ItemBaseURL),
		pncp.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.PNCP.TimeoutSecs) * time.Second}),
		pncp.WithPageSize(cfg.PNCP.PageSize),
		pncp.WithRateLimit(cfg.PNCP.RateLimit, cfg.PNCP.RateBurst),
		pncp.WithUserAgent(cfg.PNCP.UserAgent),
	)
}

// collectEnv holds everything a collect pass needs. The collect and schedule
// commands share it. Callers should defer env.Close().
type collectEnv struct {
	Pool  *pgxpool.Pool
	Seen  checkpoint.Store
	Store *store.Store
	Runs  *runlog.Log
	Miner *miner.Miner
}

// Close releases the checkpoint and the pool.
func (ce *collectEnv) Close() {
	if ce.Seen != nil {
		_ = ce.Seen.Close()
	}
	if ce.Pool != nil {
		ce.Pool.Close()
	}
}

// initCollect wires the full collection stage: pool, checkpoint, rules,
// archive, fetcher, source client, miner.
func initCollect(ctx context.Context) (*collectEnv, error) {
	if err := cfg.Validate("collect"); err != nil {
		return nil, err
	}

	pool, err := radarPool(ctx)
	if err != nil {
		return nil, err
	}

	seen, err := initCheckpoint(pool)
	if err != nil {
		pool.Close()
		return nil, err
	}

	rules, err := loadRules()
	if err != nil {
		_ = seen.Close()
		pool.Close()
		return nil, err
	}

	archive, pdf, err := initArchive()
	if err != nil {
		_ = seen.Close()
		pool.Close()
		return nil, err
	}

	docs := &miner.Docs{
		Fetcher: fetcher.NewMux(
			fetcher.HTTPOptions{
				UserAgent: cfg.PNCP.UserAgent,
				Timeout:   time.Duration(cfg.PNCP.TimeoutSecs) * time.Second,
				Retry: resilience.FromRetryConfig(
					cfg.Collect.RetryAttempts,
					cfg.Collect.RetryBackoffMs,
					cfg.Collect.RetryMaxBackoffMs,
				),
			},
			fetcher.FTPOptions{
				Timeout: time.Duration(cfg.PNCP.TimeoutSecs) * time.Second,
			},
		),
		Archive:      archive,
		Pdf:          pdf,
		MaxPerNotice: cfg.Collect.MaxAttachments,
	}

	st := store.New(pool)
	runs := runlog.New(pool)

	return &collectEnv{
		Pool:  pool,
		Seen:  seen,
		Store: st,
		Runs:  runs,
		Miner: miner.New(initPNCP(), seen, st, runs, rules, docs),
	}, nil
}

// auditEnv holds the audit stage. Callers should defer env.Close().
type auditEnv struct {
	Pool    *pgxpool.Pool
	Store   *store.Store
	Runs    *runlog.Log
	Auditor *auditor.Auditor
}

// Close releases the pool.
func (ae *auditEnv) Close() {
	if ae.Pool != nil {
		ae.Pool.Close()
	}
}

// initAudit wires the re-resolution stage. It reuses the archived files but
// never opens the source client: audits replay what collect persisted.
func initAudit(ctx context.Context) (*auditEnv, error) {
	if err := cfg.Validate("audit"); err != nil {
		return nil, err
	}

	pool, err := radarPool(ctx)
	if err != nil {
		return nil, err
	}

	rules, err := loadRules()
	if err != nil {
		pool.Close()
		return nil, err
	}

	archive, pdf, err := initArchive()
	if err != nil {
		pool.Close()
		return nil, err
	}

	st := store.New(pool)
	runs := runlog.New(pool)

	return &auditEnv{
		Pool:    pool,
		Store:   st,
		Runs:    runs,
		Auditor: auditor.New(st, runs, rules, &auditor.Docs{Archive: archive, Pdf: pdf}),
	}, nil
}
