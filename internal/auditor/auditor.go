// Package auditor re-runs extraction and normalization over records already
// in the store. It works entirely from persisted bytes: the raw listing
// payload, the saved description, and archived attachment files. Nothing is
// fetched from the source, so the pass can replay history long after the
// portal has moved on.
package auditor

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/document"
	"github.com/lanceiro/radar-cli/internal/linkcheck"
	"github.com/lanceiro/radar-cli/internal/model"
	"github.com/lanceiro/radar-cli/internal/normalize"
	"github.com/lanceiro/radar-cli/internal/resolve"
)

// NoticeSource reads audit candidates and writes the repaired records back.
type NoticeSource interface {
	ListForAudit(ctx context.Context, onlyUnresolved bool, limit int) ([]model.Notice, error)
	Attachments(ctx context.Context, externalID string) ([]model.Attachment, error)
	Upsert(ctx context.Context, n *model.Notice) error
	RegisterDomain(ctx context.Context, domain, exampleURL string) error
}

// RunLog records the run lifecycle.
type RunLog interface {
	Start(ctx context.Context, kind model.RunKind) (string, error)
	Complete(ctx context.Context, runID string, c model.Counters) error
	Fail(ctx context.Context, runID string, c model.Counters, errMsg string) error
}

// Docs lets the audit re-read archived attachment files. A nil Docs skips
// document re-extraction; the pass then works from payload and description
// alone.
type Docs struct {
	Archive *document.Store
	Pdf     document.Extractor
}

// Options selects what one audit pass covers.
type Options struct {
	// Limit caps the records examined; zero means the store default.
	Limit int

	// OnlyUnresolved restricts the pass to records missing their auction
	// date or sitting in quarantine.
	OnlyUnresolved bool
}

// Auditor is the re-resolution stage. It runs the same cascades as the
// collect stage minus the live detail lookup.
type Auditor struct {
	notices    NoticeSource
	runs       RunLog
	resolver   *resolve.Resolver
	normalizer *normalize.Normalizer
	links      *linkcheck.Validator
	docs       *Docs
	now        func() time.Time
}

// New wires the audit stage.
func New(notices NoticeSource, runs RunLog, rules resolve.Rules, docs *Docs) *Auditor {
	return &Auditor{
		notices: notices,
		runs:    runs,
		resolver: resolve.New(resolve.BuildCascades(resolve.CascadeConfig{
			Rules: rules,
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
func (a *Auditor) WithNow(now func() time.Time) *Auditor {
	a.now = now
	return a
}

// Run executes one audit pass. Per-record failures increment Failed and
// never abort the pass; only an unreadable store fails the run.
func (a *Auditor) Run(ctx context.Context, opts Options) (model.Counters, error) {
	log := zap.L().With(zap.String("component", "auditor"))

	var c model.Counters

	runID, err := a.runs.Start(ctx, model.RunAudit)
	if err != nil {
		return c, eris.Wrap(err, "auditor: start run")
	}

	log.Info("audit run started",
		zap.String("run_id", runID),
		zap.Int("limit", opts.Limit),
		zap.Bool("only_unresolved", opts.OnlyUnresolved),
	)

	notices, err := a.notices.ListForAudit(ctx, opts.OnlyUnresolved, opts.Limit)
	if err != nil {
		return c, a.fail(ctx, log, runID, c, eris.Wrap(err, "auditor: list records"))
	}

	for i := range notices {
		if err := ctx.Err(); err != nil {
			return c, a.fail(ctx, log, runID, c, eris.Wrap(err, "auditor: run canceled"))
		}
		a.auditNotice(ctx, log, &notices[i], &c)
	}

	if err := a.runs.Complete(ctx, runID, c); err != nil {
		log.Error("auditor: record run completion", zap.Error(err))
	}

	log.Info("audit run complete",
		zap.String("run_id", runID),
		zap.Int("seen", c.Seen),
		zap.Int("updated", c.Updated),
		zap.Int("published", c.Published),
		zap.Int("quarantined", c.Quarantined),
		zap.Int("failed", c.Failed),
	)
	return c, nil
}

func (a *Auditor) fail(ctx context.Context, log *zap.Logger, runID string, c model.Counters, err error) error {
	log.Error("audit run failed", zap.String("run_id", runID), zap.Error(err))
	if logErr := a.runs.Fail(ctx, runID, c, err.Error()); logErr != nil {
		log.Error("auditor: record run failure", zap.Error(logErr))
	}
	return err
}
