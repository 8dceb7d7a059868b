// Package miner drives the collection stage: list notices published inside a
// window, dedupe against the checkpoint, gather supporting documents, resolve
// fields through the cascades, and publish or quarantine every record.
package miner

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/checkpoint"
	"github.com/lanceiro/radar-cli/internal/document"
	"github.com/lanceiro/radar-cli/internal/fetcher"
	"github.com/lanceiro/radar-cli/internal/linkcheck"
	"github.com/lanceiro/radar-cli/internal/model"
	"github.com/lanceiro/radar-cli/internal/normalize"
	"github.com/lanceiro/radar-cli/internal/resilience"
	"github.com/lanceiro/radar-cli/internal/resolve"
	"github.com/lanceiro/radar-cli/pkg/pncp"
)

// defaultMaxAttachments caps how many files one notice contributes to the
// archive and the text cascades.
const defaultMaxAttachments = 5

// NoticeStore is the slice of the canonical store the collection stage
// writes through.
type NoticeStore interface {
	Upsert(ctx context.Context, n *model.Notice) error
	SaveAttachments(ctx context.Context, atts []model.Attachment) error
	RegisterDomain(ctx context.Context, domain, exampleURL string) error
}

// RunLog records the run lifecycle.
type RunLog interface {
	Start(ctx context.Context, kind model.RunKind) (string, error)
	Complete(ctx context.Context, runID string, c model.Counters) error
	Fail(ctx context.Context, runID string, c model.Counters, errMsg string) error
}

// Docs bundles what attachment processing needs: a fetcher for the download,
// an archive for the original bytes, and a PDF text extractor. A nil Docs
// skips attachments entirely; the document cascade steps then miss.
type Docs struct {
	Fetcher fetcher.Fetcher
	Archive *document.Store
	Pdf     document.Extractor

	// MaxPerNotice caps attachments per record; zero means the default.
	MaxPerNotice int
}

// Options selects the window and caps for one collect run.
type Options struct {
	Window pncp.Window

	// Limit stops the run after this many records; zero is unlimited.
	Limit int

	// ModalityCodes are the PNCP listing codes to walk; nil means both
	// auction modes.
	ModalityCodes []int
}

// Miner is the collection stage. One instance serves many runs.
type Miner struct {
	client     pncp.Client
	seen       checkpoint.Store
	notices    NoticeStore
	runs       RunLog
	resolver   *resolve.Resolver
	normalizer *normalize.Normalizer
	links      *linkcheck.Validator
	docs       *Docs
	now        func() time.Time
}

// New wires the collection stage. Detail lookups run behind a circuit
// breaker so a failing detail endpoint degrades the cascade instead of
// costing one doomed call per record.
func New(client pncp.Client, seen checkpoint.Store, notices NoticeStore, runs RunLog, rules resolve.Rules, docs *Docs) *Miner {
	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig())
	detail := resolve.NewDetailFetcher(client, breaker, 0)

	return &Miner{
		client:  client,
		seen:    seen,
		notices: notices,
		runs:    runs,
		resolver: resolve.New(resolve.BuildCascades(resolve.CascadeConfig{
			Rules:       rules,
			FetchDetail: detail.FetchRecord,
		})),
		normalizer: normalize.New(normalize.Config{
			TagDenylist:   rules.TagDenylist,
			TagKeywords:   rules.TagKeywords,
			OnlineWords:   rules.OnlineWords,
			InPersonWords: rules.InPersonWords,
		}),
		links: linkcheck.New(rules.EmailHosts, rules.GovSuffixes),
		docs:  docs,
		now:   time.Now,
	}
}

// WithNow pins the clock; tests use it to fix resolution timestamps and the
// date-plausibility window.
func (m *Miner) WithNow(now func() time.Time) *Miner {
	m.now = now
	return m
}

// Run executes one collect pass. Failures local to one record increment
// Failed and never abort the pass; only an unreachable listing endpoint on
// the run's first page marks the run failed.
func (m *Miner) Run(ctx context.Context, opts Options) (model.Counters, error) {
	log := zap.L().With(zap.String("component", "miner"))

	codes := opts.ModalityCodes
	if len(codes) == 0 {
		codes = []int{pncp.ModalityElectronicAuction, pncp.ModalityInPersonAuction}
	}

	var c model.Counters

	runID, err := m.runs.Start(ctx, model.RunCollect)
	if err != nil {
		return c, eris.Wrap(err, "miner: start run")
	}

	log.Info("collect run started",
		zap.String("run_id", runID),
		zap.Time("window_from", opts.Window.From),
		zap.Time("window_to", opts.Window.To),
		zap.Ints("modality_codes", codes),
	)

	first := true
	for _, code := range codes {
		stop, err := m.collectModality(ctx, log, opts, code, &first, &c)
		if err != nil {
			log.Error("collect run failed", zap.String("run_id", runID), zap.Error(err))
			if logErr := m.runs.Fail(ctx, runID, c, err.Error()); logErr != nil {
				log.Error("miner: record run failure", zap.Error(logErr))
			}
			return c, err
		}
		if stop {
			break
		}
	}

	if err := m.runs.Complete(ctx, runID, c); err != nil {
		log.Error("miner: record run completion", zap.Error(err))
	}

	log.Info("collect run complete",
		zap.String("run_id", runID),
		zap.Int("pages", c.Pages),
		zap.Int("seen", c.Seen),
		zap.Int("new", c.New),
		zap.Int("updated", c.Updated),
		zap.Int("published", c.Published),
		zap.Int("quarantined", c.Quarantined),
		zap.Int("failed", c.Failed),
	)
	return c, nil
}

// collectModality pages through one modality code in API order. stop reports
// that listing must end for the whole run: the record cap tripped or the
// source rate-limited us. A failed page after the first one moves on to the
// next modality instead of failing the run.
func (m *Miner) collectModality(ctx context.Context, log *zap.Logger, opts Options, code int, first *bool, c *model.Counters) (stop bool, err error) {
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return true, eris.Wrap(err, "miner: run canceled")
		}
		if opts.Limit > 0 && c.Seen >= opts.Limit {
			return true, nil
		}

		res, err := m.client.List(ctx, opts.Window, code, page)
		if errors.Is(err, pncp.ErrRateLimited) {
			log.Warn("miner: rate limited, listing stops for this run",
				zap.Int("modality_code", code),
				zap.Int("page", page),
			)
			return true, nil
		}
		if err != nil {
			if *first {
				return true, eris.Wrapf(err, "miner: list modality %d", code)
			}
			log.Warn("miner: list page failed, moving to next modality",
				zap.Int("modality_code", code),
				zap.Int("page", page),
				zap.Error(err),
			)
			return false, nil
		}
		*first = false

		if res == nil || len(res.Data) == 0 {
			return false, nil
		}
		c.Pages++

		for i := range res.Data {
			if opts.Limit > 0 && c.Seen >= opts.Limit {
				return true, nil
			}
			m.processRecord(ctx, log, res.Data[i], c)
		}

		if res.TotalPages > 0 && page >= res.TotalPages {
			return false, nil
		}
	}
}
