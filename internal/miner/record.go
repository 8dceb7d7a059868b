package miner

import (
	"context"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/document"
	"github.com/lanceiro/radar-cli/internal/model"
	"github.com/lanceiro/radar-cli/internal/normalize"
	"github.com/lanceiro/radar-cli/internal/resolve"
	"github.com/lanceiro/radar-cli/pkg/pncp"
)

// processRecord runs one stub through the full pipeline: documents, cascades,
// normalization, link validation, and the publish-or-quarantine decision.
// Every failure path settles a counter and returns; nothing aborts the run.
func (m *Miner) processRecord(ctx context.Context, log *zap.Logger, stub pncp.Stub, c *model.Counters) {
	c.Seen++

	externalID, err := pncp.ExternalID(stub)
	if err != nil {
		m.quarantineInvalid(ctx, log, stub, err, c)
		return
	}
	recLog := log.With(zap.String("external_id", externalID))

	rec := &resolve.Record{
		Stub:        stub,
		ExternalID:  externalID,
		RawPayload:  stub.Raw,
		Description: joinDescription(stub),
		Now:         m.now(),
	}

	var atts []model.Attachment
	if m.docs != nil {
		atts = m.gatherDocuments(ctx, recLog, externalID, rec)
	}

	resolutions := m.resolver.ResolveAll(ctx, rec)
	n := m.buildNotice(stub, externalID, rec, resolutions)

	structured := n.Modality
	m.normalizer.Apply(n, rec.Text())
	if n.Modality != structured {
		n.Trace.Set(model.FieldModality, "normalize:contradiction", m.now())
	} else if n.Modality != model.ModalityUnknown {
		n.Trace.Set(model.FieldModality, "structured", m.now())
	}

	link := m.links.Evaluate(n.Modality, stub.OriginSystemLink, rec.Text())
	if link.Found && link.Valid {
		n.CounterpartLink = link.Link
		n.Trace.Set(model.FieldCounterpartLink, "linkcheck", m.now())
	}

	if n.AuctionAt == nil {
		n.Status = model.StatusQuarantined
		n.QuarantineReason = model.ReasonMissingAuctionDate
	} else {
		n.Status = model.StatusPublished
	}

	if !m.persist(ctx, recLog, n, c) {
		return
	}

	if len(atts) > 0 {
		if err := m.notices.SaveAttachments(ctx, atts); err != nil {
			recLog.Warn("miner: save attachments", zap.Error(err))
		}
	}
	if link.Found && link.Valid {
		if err := m.notices.RegisterDomain(ctx, link.Domain, link.Link); err != nil {
			recLog.Warn("miner: register counterpart domain", zap.Error(err))
		}
	}

	if n.Status == model.StatusQuarantined {
		recLog.Info("notice quarantined", zap.String("reason", string(n.QuarantineReason)))
	} else {
		recLog.Debug("notice published",
			zap.Timep("auction_at", n.AuctionAt),
			zap.String("modality", string(n.Modality)),
		)
	}
}

// quarantineInvalid stores what little identity a malformed record has, so
// the rejection stays inspectable instead of silent. Records with no usable
// key at all count as failed and are skipped.
func (m *Miner) quarantineInvalid(ctx context.Context, log *zap.Logger, stub pncp.Stub, cause error, c *model.Counters) {
	key := strings.TrimSpace(stub.ControlNumber)
	if key == "" {
		log.Warn("miner: record has no usable identity", zap.Error(cause))
		c.Failed++
		return
	}
	recLog := log.With(zap.String("external_id", key))
	recLog.Warn("miner: malformed control number", zap.Error(cause))

	n := &model.Notice{
		ExternalID:       key,
		AuthorityName:    stub.Authority.LegalName,
		StateCode:        model.NormalizeState(stub.Unit.StateCode),
		CityName:         stub.Unit.CityName,
		IBGECode:         stub.Unit.IBGECode,
		Description:      joinDescription(stub),
		Modality:         modalityFromStub(stub),
		PublishedAt:      tsTime(stub.PublishedAt),
		UpdatedAt:        tsTime(stub.UpdatedAt),
		Status:           model.StatusQuarantined,
		QuarantineReason: model.ReasonInvalidExternalID,
		Trace:            model.Trace{},
		RawPayload:       stub.Raw,
	}

	if m.persist(ctx, recLog, n, c) {
		recLog.Info("notice quarantined", zap.String("reason", string(n.QuarantineReason)))
	}
}

// persist upserts the notice, marks the checkpoint, and settles the
// counters. Returns false when the record could not be stored.
func (m *Miner) persist(ctx context.Context, log *zap.Logger, n *model.Notice, c *model.Counters) bool {
	seenBefore, seenErr := m.seen.HasSeen(ctx, n.ExternalID)
	if seenErr != nil {
		log.Warn("miner: checkpoint lookup", zap.Error(seenErr))
	}

	if err := m.notices.Upsert(ctx, n); err != nil {
		log.Error("miner: upsert notice", zap.Error(err))
		c.Failed++
		return false
	}

	if err := m.seen.MarkSeen(ctx, n.ExternalID); err != nil {
		log.Warn("miner: checkpoint mark", zap.Error(err))
	}

	// An unreadable checkpoint cannot tell new from updated; leave the
	// split alone rather than recount the record as new on every retry.
	switch {
	case seenErr != nil:
	case seenBefore:
		c.Updated++
	default:
		c.New++
	}
	if n.Status == model.StatusQuarantined {
		c.Quarantined++
	} else {
		c.Published++
	}
	return true
}

// buildNotice assembles the canonical record from the stub and the cascade
// outcomes. Every resolution winner lands in the trace with its source tag.
func (m *Miner) buildNotice(stub pncp.Stub, externalID string, rec *resolve.Record, res map[string]resolve.FieldResolution) *model.Notice {
	now := m.now()

	n := &model.Notice{
		ExternalID:    externalID,
		AuthorityName: stub.Authority.LegalName,
		StateCode:     model.NormalizeState(stub.Unit.StateCode),
		CityName:      stub.Unit.CityName,
		IBGECode:      stub.Unit.IBGECode,
		Description:   rec.Description,
		SourceLink:    pncp.SourceLink(stub),
		Modality:      modalityFromStub(stub),
		PublishedAt:   tsTime(stub.PublishedAt),
		UpdatedAt:     tsTime(stub.UpdatedAt),
		Trace:         model.Trace{},
		RawPayload:    stub.Raw,
	}

	if r := res[resolve.FieldAuctionAt]; r.Resolved {
		if t, ok := r.Value.(time.Time); ok {
			n.AuctionAt = &t
			n.Trace.Set(model.FieldAuctionAt, r.Source, now)
		}
	}
	if r := res[resolve.FieldEstimatedValue]; r.Resolved {
		if v, ok := r.Value.(float64); ok {
			n.EstimatedValue = &v
			n.Trace.Set(model.FieldEstimatedValue, r.Source, now)
		}
	}
	if r := res[resolve.FieldItemCount]; r.Resolved {
		if v, ok := r.Value.(int); ok {
			n.ItemCount = &v
			n.Trace.Set(model.FieldItemCount, r.Source, now)
		}
	}
	if r := res[resolve.FieldCounterpartName]; r.Resolved {
		if v, ok := r.Value.(string); ok {
			n.CounterpartName = v
			n.Trace.Set(model.FieldCounterpartName, r.Source, now)
		}
	}

	return n
}

// gatherDocuments lists, archives, and extracts the notice's attachments,
// filling the record's document text and sheets for the cascades. Failures
// here degrade to "no document", never to a record failure.
func (m *Miner) gatherDocuments(ctx context.Context, log *zap.Logger, externalID string, rec *resolve.Record) []model.Attachment {
	cnpj, year, seq, err := pncp.ParseExternalID(externalID)
	if err != nil {
		return nil
	}

	listed, err := m.client.Attachments(ctx, cnpj, year, seq)
	if err != nil {
		log.Warn("miner: list attachments", zap.Error(err))
		return nil
	}

	limit := m.docs.MaxPerNotice
	if limit <= 0 {
		limit = defaultMaxAttachments
	}

	var (
		saved []model.Attachment
		texts []string
	)
	for _, att := range listed {
		if len(saved) >= limit {
			break
		}
		link := att.Link()
		if !att.Active || link == "" {
			continue
		}

		relPath, err := m.fetchAttachment(ctx, link, att.Title)
		if err != nil {
			log.Warn("miner: fetch attachment", zap.String("url", link), zap.Error(err))
			continue
		}

		abs := m.docs.Archive.Abs(relPath)
		kind, err := document.Detect(abs)
		if err != nil {
			log.Warn("miner: classify attachment", zap.String("path", relPath), zap.Error(err))
			continue
		}

		fetchedAt := m.now()
		saved = append(saved, model.Attachment{
			ExternalID:  externalID,
			Title:       att.Title,
			URL:         link,
			ContentType: contentTypeFor(kind),
			Path:        relPath,
			FetchedAt:   &fetchedAt,
		})

		switch kind {
		case document.KindPDF:
			text, err := m.docs.Pdf.ExtractText(ctx, abs)
			if err != nil {
				log.Warn("miner: extract pdf text", zap.String("path", relPath), zap.Error(err))
				continue
			}
			texts = append(texts, text)
		case document.KindSpreadsheet:
			sheets, err := document.ReadSheets(abs)
			if err != nil {
				log.Warn("miner: read spreadsheet", zap.String("path", relPath), zap.Error(err))
				continue
			}
			rec.Sheets = append(rec.Sheets, sheets...)
		}
	}

	rec.DocText = strings.Join(texts, "\n")
	return saved
}

// fetchAttachment downloads one attachment into the archive and returns its
// relative path.
func (m *Miner) fetchAttachment(ctx context.Context, link, title string) (string, error) {
	body, err := m.docs.Fetcher.Download(ctx, link)
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck

	return m.docs.Archive.Put(attachmentName(link, title), body)
}

// attachmentName prefers the URL basename when it carries an extension; the
// portal's download URLs usually do not, so the title is the fallback.
func attachmentName(link, title string) string {
	if u, err := url.Parse(link); err == nil {
		if base := path.Base(u.Path); path.Ext(base) != "" {
			return base
		}
	}
	return title
}

// contentTypeFor maps a sniffed kind to the MIME type recorded with the
// attachment row.
func contentTypeFor(kind document.Kind) string {
	switch kind {
	case document.KindPDF:
		return "application/pdf"
	case document.KindSpreadsheet:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return ""
}

// joinDescription merges the stub's object text with its complementary info,
// which is where publishing systems usually put the schedule line.
func joinDescription(stub pncp.Stub) string {
	obj := strings.TrimSpace(stub.Object)
	info := strings.TrimSpace(stub.ComplementaryInfo)
	switch {
	case obj == "":
		return info
	case info == "":
		return obj
	}
	return obj + "\n" + info
}

// modalityFromStub maps the PNCP modality code, falling back to the spelled
// out name for records published before the auction codes stabilized.
func modalityFromStub(stub pncp.Stub) model.Modality {
	switch stub.ModalityID {
	case pncp.ModalityElectronicAuction:
		return model.ModalityElectronic
	case pncp.ModalityInPersonAuction:
		return model.ModalityInPerson
	}
	return normalize.CanonicalModality(stub.ModalityName)
}

// tsTime unwraps an optional PNCP timestamp.
func tsTime(ts *pncp.Timestamp) *time.Time {
	if ts == nil || ts.Time.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
