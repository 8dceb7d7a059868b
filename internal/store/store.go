// Package store persists canonical notices, their attachments, and the
// counterpart-domain registry. Every write is an idempotent upsert keyed on
// external_id, safe to replay across runs.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/lanceiro/radar-cli/internal/db"
	"github.com/lanceiro/radar-cli/internal/model"
)

// Store runs all canonical-record queries on a shared pgx pool.
type Store struct {
	pool db.Pool
}

// New wraps an existing pool; the caller keeps ownership of it.
func New(pool db.Pool) *Store {
	return &Store{pool: pool}
}

const noticeColumns = `internal_id, external_id, authority_name, state_code, city_name,
	COALESCE(ibge_code, ''), title, description, summary, tags, source_link,
	COALESCE(counterpart_link, ''), COALESCE(counterpart_name, ''), modality,
	estimated_value, item_count, auction_at, published_at, updated_at, status,
	COALESCE(quarantine_reason, ''), trace, raw_payload`

// Upsert inserts or refreshes one notice. internal_id and created_at are set
// on first insert and never change afterwards.
func (s *Store) Upsert(ctx context.Context, n *model.Notice) error {
	if n.InternalID == "" {
		n.InternalID = uuid.New().String()
	}
	if n.Status == "" {
		n.Status = model.StatusPublished
	}
	// tags is NOT NULL; a nil slice would encode as SQL NULL.
	if n.Tags == nil {
		n.Tags = []string{}
	}

	traceJSON, err := json.Marshal(n.Trace)
	if err != nil {
		return eris.Wrap(err, "store: marshal trace")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO notices (
			internal_id, external_id, authority_name, state_code, city_name,
			ibge_code, title, description, summary, tags, source_link,
			counterpart_link, counterpart_name, modality, estimated_value,
			item_count, auction_at, published_at, updated_at, status,
			quarantine_reason, trace, raw_payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			$15, $16, $17, $18, $19, $20, $21, $22, $23)
		ON CONFLICT (external_id) DO UPDATE SET
			authority_name    = EXCLUDED.authority_name,
			state_code        = EXCLUDED.state_code,
			city_name         = EXCLUDED.city_name,
			ibge_code         = EXCLUDED.ibge_code,
			title             = EXCLUDED.title,
			description       = EXCLUDED.description,
			summary           = EXCLUDED.summary,
			tags              = EXCLUDED.tags,
			source_link       = EXCLUDED.source_link,
			counterpart_link  = EXCLUDED.counterpart_link,
			counterpart_name  = EXCLUDED.counterpart_name,
			modality          = EXCLUDED.modality,
			estimated_value   = EXCLUDED.estimated_value,
			item_count        = EXCLUDED.item_count,
			auction_at        = EXCLUDED.auction_at,
			published_at      = EXCLUDED.published_at,
			updated_at        = EXCLUDED.updated_at,
			status            = EXCLUDED.status,
			quarantine_reason = EXCLUDED.quarantine_reason,
			trace             = EXCLUDED.trace,
			raw_payload       = EXCLUDED.raw_payload,
			row_updated_at    = now()`,
		n.InternalID, n.ExternalID, n.AuthorityName, n.StateCode, n.CityName,
		nullString(n.IBGECode), n.Title, n.Description, n.Summary, n.Tags,
		n.SourceLink, nullString(n.CounterpartLink), nullString(n.CounterpartName),
		string(n.Modality), n.EstimatedValue, n.ItemCount, n.AuctionAt,
		n.PublishedAt, n.UpdatedAt, string(n.Status),
		nullString(string(n.QuarantineReason)), traceJSON, n.RawPayload,
	)
	return eris.Wrapf(err, "store: upsert notice %s", n.ExternalID)
}

// Get returns one notice by external id, or nil when absent.
func (s *Store) Get(ctx context.Context, externalID string) (*model.Notice, error) {
	n, err := scanNotice(s.pool.QueryRow(ctx,
		`SELECT `+noticeColumns+` FROM notices WHERE external_id = $1`,
		externalID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "store: get notice %s", externalID)
	}
	return n, nil
}

// Quarantine withholds an existing notice from publication.
func (s *Store) Quarantine(ctx context.Context, externalID string, reason model.QuarantineReason) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notices SET status = $1, quarantine_reason = $2, row_updated_at = now()
		 WHERE external_id = $3`,
		string(model.StatusQuarantined), string(reason), externalID,
	)
	if err != nil {
		return eris.Wrapf(err, "store: quarantine %s", externalID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("notice not found: %s", externalID)
	}
	return nil
}

// Republish returns a quarantined notice to the published pool. The gate
// still hides it until auction_at is resolved.
func (s *Store) Republish(ctx context.Context, externalID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE notices SET status = $1, quarantine_reason = NULL, row_updated_at = now()
		 WHERE external_id = $2`,
		string(model.StatusPublished), externalID,
	)
	if err != nil {
		return eris.Wrapf(err, "store: republish %s", externalID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("notice not found: %s", externalID)
	}
	return nil
}

// ListForAudit returns stored notices oldest-first so the auditor can
// re-resolve them from raw_payload without re-fetching.
func (s *Store) ListForAudit(ctx context.Context, onlyUnresolved bool, limit int) ([]model.Notice, error) {
	query := `SELECT ` + noticeColumns + ` FROM notices WHERE true`
	if onlyUnresolved {
		query += ` AND (auction_at IS NULL OR status = 'quarantined')`
	}
	query += ` ORDER BY created_at ASC LIMIT $1`

	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, eris.Wrap(err, "store: list for audit")
	}
	return scanNotices(rows)
}

// ListQuarantined returns withheld notices newest-first.
func (s *Store) ListQuarantined(ctx context.Context, limit int) ([]model.Notice, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+noticeColumns+` FROM notices WHERE status = $1
		 ORDER BY row_updated_at DESC LIMIT $2`,
		string(model.StatusQuarantined), limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list quarantined")
	}
	return scanNotices(rows)
}

// Counts reports how many notices sit in each status.
func (s *Store) Counts(ctx context.Context) (map[model.Status]int64, error) {
	rows, err := s.pool.Query(ctx, `SELECT status, COUNT(*) FROM notices GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "store: counts")
	}
	defer rows.Close()

	counts := make(map[model.Status]int64)
	for rows.Next() {
		var status model.Status
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "store: scan count")
		}
		counts[status] = n
	}
	return counts, eris.Wrap(rows.Err(), "store: counts iterate")
}

// SaveAttachments upserts the fetched documents for a notice, keyed on
// (external_id, url).
func (s *Store) SaveAttachments(ctx context.Context, atts []model.Attachment) error {
	for _, a := range atts {
		_, err := s.pool.Exec(ctx,
			`INSERT INTO attachments (external_id, title, url, content_type, path, fetched_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (external_id, url) DO UPDATE SET
				title        = EXCLUDED.title,
				content_type = EXCLUDED.content_type,
				path         = EXCLUDED.path,
				fetched_at   = EXCLUDED.fetched_at`,
			a.ExternalID, a.Title, a.URL, a.ContentType, a.Path, a.FetchedAt,
		)
		if err != nil {
			return eris.Wrapf(err, "store: save attachment %s", a.URL)
		}
	}
	return nil
}

// Attachments returns the archived documents for one notice.
func (s *Store) Attachments(ctx context.Context, externalID string) ([]model.Attachment, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, external_id, title, url, content_type, path, fetched_at
		 FROM attachments WHERE external_id = $1 ORDER BY id`,
		externalID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "store: attachments %s", externalID)
	}
	defer rows.Close()

	var atts []model.Attachment
	for rows.Next() {
		var a model.Attachment
		if err := rows.Scan(&a.ID, &a.ExternalID, &a.Title, &a.URL, &a.ContentType, &a.Path, &a.FetchedAt); err != nil {
			return nil, eris.Wrap(err, "store: scan attachment")
		}
		atts = append(atts, a)
	}
	return atts, eris.Wrap(rows.Err(), "store: attachments iterate")
}

// helpers

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanNotice(row pgx.Row) (*model.Notice, error) {
	var n model.Notice
	var traceJSON []byte

	err := row.Scan(
		&n.InternalID, &n.ExternalID, &n.AuthorityName, &n.StateCode, &n.CityName,
		&n.IBGECode, &n.Title, &n.Description, &n.Summary, &n.Tags, &n.SourceLink,
		&n.CounterpartLink, &n.CounterpartName, &n.Modality,
		&n.EstimatedValue, &n.ItemCount, &n.AuctionAt, &n.PublishedAt, &n.UpdatedAt,
		&n.Status, &n.QuarantineReason, &traceJSON, &n.RawPayload,
	)
	if err != nil {
		return nil, err
	}

	if len(traceJSON) > 0 {
		n.Trace = model.Trace{}
		if err := json.Unmarshal(traceJSON, &n.Trace); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal trace")
		}
	}
	return &n, nil
}

func scanNotices(rows pgx.Rows) ([]model.Notice, error) {
	defer rows.Close()

	var out []model.Notice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, eris.Wrap(err, "store: scan notice")
		}
		out = append(out, *n)
	}
	return out, eris.Wrap(rows.Err(), "store: iterate notices")
}
