package auditor

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/document"
	"github.com/lanceiro/radar-cli/internal/model"
	"github.com/lanceiro/radar-cli/internal/resolve"
)

// auditNotice re-resolves one stored record. Fields already carrying a value
// keep it: without the live detail endpoint the audit never has a better
// source than the collect run did, so it only fills gaps, repairs
// contradictions, and lifts records out of quarantine when the date turns up.
func (a *Auditor) auditNotice(ctx context.Context, log *zap.Logger, n *model.Notice, c *model.Counters) {
	c.Seen++
	recLog := log.With(zap.String("external_id", n.ExternalID))

	if n.Trace == nil {
		n.Trace = model.Trace{}
	}

	rec := a.buildRecord(ctx, recLog, n)
	changed := a.fill(n, a.resolver.ResolveAll(ctx, rec))

	structured := n.Modality
	beforeTitle, beforeSummary := n.Title, n.Summary
	beforeTags := slices.Clone(n.Tags)
	a.normalizer.Apply(n, rec.Text())
	if n.Modality != structured {
		n.Trace.Set(model.FieldModality, "normalize:contradiction", a.now())
		changed = true
	}
	if n.Title != beforeTitle || n.Summary != beforeSummary || !slices.Equal(n.Tags, beforeTags) {
		changed = true
	}

	if n.CounterpartLink == "" {
		link := a.links.Evaluate(n.Modality, "", rec.Text())
		if link.Found && link.Valid {
			n.CounterpartLink = link.Link
			n.Trace.Set(model.FieldCounterpartLink, "linkcheck", a.now())
			changed = true
			if err := a.notices.RegisterDomain(ctx, link.Domain, link.Link); err != nil {
				recLog.Warn("auditor: register domain", zap.Error(err))
			}
		}
	}

	republished := false
	if n.Status == model.StatusQuarantined &&
		n.QuarantineReason == model.ReasonMissingAuctionDate &&
		n.AuctionAt != nil {
		n.Status = model.StatusPublished
		n.QuarantineReason = ""
		republished = true
		changed = true
	}

	if !changed {
		if n.Status == model.StatusQuarantined {
			c.Quarantined++
		}
		recLog.Debug("audit left record unchanged")
		return
	}

	if err := a.notices.Upsert(ctx, n); err != nil {
		recLog.Error("auditor: upsert notice", zap.Error(err))
		c.Failed++
		return
	}
	c.Updated++
	if republished {
		c.Published++
	}
	if n.Status == model.StatusQuarantined {
		c.Quarantined++
	}
	recLog.Info("audit updated record",
		zap.String("status", string(n.Status)),
		zap.Timep("auction_at", n.AuctionAt),
	)
}

// buildRecord reconstructs the resolver input from persisted state. The raw
// listing bytes decode back into a stub, so structured steps see exactly
// what the collect run saw.
func (a *Auditor) buildRecord(ctx context.Context, log *zap.Logger, n *model.Notice) *resolve.Record {
	rec := &resolve.Record{
		ExternalID:  n.ExternalID,
		RawPayload:  n.RawPayload,
		Description: n.Description,
		Now:         a.now(),
	}
	if len(n.RawPayload) > 0 {
		if err := json.Unmarshal(n.RawPayload, &rec.Stub); err != nil {
			log.Warn("auditor: decode raw payload", zap.Error(err))
		}
		rec.Stub.Raw = json.RawMessage(n.RawPayload)
	}
	if a.docs != nil {
		a.reread(ctx, log, n.ExternalID, rec)
	}
	return rec
}

// reread pulls text and cells out of the archived attachment files.
func (a *Auditor) reread(ctx context.Context, log *zap.Logger, externalID string, rec *resolve.Record) {
	atts, err := a.notices.Attachments(ctx, externalID)
	if err != nil {
		log.Warn("auditor: list attachments", zap.Error(err))
		return
	}

	var texts []string
	for _, att := range atts {
		if att.Path == "" {
			continue
		}
		abs := a.docs.Archive.Abs(att.Path)

		kind, err := document.Detect(abs)
		if err != nil {
			log.Warn("auditor: classify attachment", zap.String("path", att.Path), zap.Error(err))
			continue
		}
		switch kind {
		case document.KindPDF:
			text, err := a.docs.Pdf.ExtractText(ctx, abs)
			if err != nil {
				log.Warn("auditor: extract pdf text", zap.String("path", att.Path), zap.Error(err))
				continue
			}
			texts = append(texts, text)
		case document.KindSpreadsheet:
			sheets, err := document.ReadSheets(abs)
			if err != nil {
				log.Warn("auditor: read spreadsheet", zap.String("path", att.Path), zap.Error(err))
				continue
			}
			rec.Sheets = append(rec.Sheets, sheets...)
		}
	}
	rec.DocText = strings.Join(texts, "\n")
}

// fill copies resolved values onto fields the record does not have yet.
func (a *Auditor) fill(n *model.Notice, res map[string]resolve.FieldResolution) bool {
	changed := false
	now := a.now()

	if n.AuctionAt == nil {
		if r := res[resolve.FieldAuctionAt]; r.Resolved {
			if t, ok := r.Value.(time.Time); ok {
				n.AuctionAt = &t
				n.Trace.Set(model.FieldAuctionAt, r.Source, now)
				changed = true
			}
		}
	}
	if n.EstimatedValue == nil {
		if r := res[resolve.FieldEstimatedValue]; r.Resolved {
			if v, ok := r.Value.(float64); ok {
				n.EstimatedValue = &v
				n.Trace.Set(model.FieldEstimatedValue, r.Source, now)
				changed = true
			}
		}
	}
	if n.ItemCount == nil {
		if r := res[resolve.FieldItemCount]; r.Resolved {
			if v, ok := r.Value.(int); ok {
				n.ItemCount = &v
				n.Trace.Set(model.FieldItemCount, r.Source, now)
				changed = true
			}
		}
	}
	if n.CounterpartName == "" {
		if r := res[resolve.FieldCounterpartName]; r.Resolved {
			if v, ok := r.Value.(string); ok {
				n.CounterpartName = v
				n.Trace.Set(model.FieldCounterpartName, r.Source, now)
				changed = true
			}
		}
	}
	return changed
}
