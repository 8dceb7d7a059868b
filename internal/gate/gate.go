// Package gate serves the read-side view of published notices: upcoming
// auctions only, filtered and paginated, joined with municipality
// coordinates. History stays in the table; expiry is a query predicate.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/lanceiro/radar-cli/internal/db"
	"github.com/lanceiro/radar-cli/internal/model"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Filter is the optional narrowing applied on top of the fixed gate
// predicate (published, upcoming, non-empty source link).
type Filter struct {
	State    string
	City     string
	Tag      string
	MinValue *float64
	MaxValue *float64
	From     *time.Time
	To       *time.Time
	Sort     string
	Page     int
	PageSize int
}

// NoticeView is one gate row: the notice plus municipality coordinates when
// the ibge_code join hits.
type NoticeView struct {
	model.Notice
	Lat *float64 `json:"lat,omitempty"`
	Lon *float64 `json:"lon,omitempty"`
}

// Page is one result page.
type Page struct {
	Data       []NoticeView `json:"data"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
}

var sortClauses = map[string]string{
	"soonest":  "n.auction_at ASC",
	"farthest": "n.auction_at DESC",
	"newest":   "n.published_at DESC",
	"oldest":   "n.published_at ASC",
}

// Gate runs the read-side queries on a shared pool.
type Gate struct {
	pool db.Pool
	now  func() time.Time
}

// New builds a Gate on the wall clock.
func New(pool db.Pool) *Gate {
	return &Gate{pool: pool, now: time.Now}
}

// WithNow pins the clock; tests use it to fix the publication day.
func (g *Gate) WithNow(now func() time.Time) *Gate {
	g.now = now
	return g
}

const viewColumns = `n.internal_id, n.external_id, n.authority_name, n.state_code, n.city_name,
	COALESCE(n.ibge_code, ''), n.title, n.description, n.summary, n.tags, n.source_link,
	COALESCE(n.counterpart_link, ''), COALESCE(n.counterpart_name, ''), n.modality,
	n.estimated_value, n.item_count, n.auction_at, n.published_at, n.updated_at,
	n.status, n.trace, m.lat, m.lon`

// List returns one page of upcoming published notices.
func (g *Gate) List(ctx context.Context, f Filter) (*Page, error) {
	where, args := g.buildWhere(f)

	var total int64
	err := g.pool.QueryRow(ctx, `SELECT COUNT(*)`+where, args...).Scan(&total)
	if err != nil {
		return nil, eris.Wrap(err, "gate: count notices")
	}

	page := f.Page
	if page < 1 {
		page = 1
	}
	size := f.PageSize
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	order, ok := sortClauses[f.Sort]
	if !ok {
		order = sortClauses["soonest"]
	}

	query := `SELECT ` + viewColumns + where +
		` ORDER BY ` + order + `, n.external_id ASC` +
		fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	args = append(args, size, (page-1)*size)

	rows, err := g.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "gate: list notices")
	}
	defer rows.Close()

	// Non-nil so an empty page serializes as "data": [].
	data := []NoticeView{}
	for rows.Next() {
		var v NoticeView
		var traceJSON []byte
		if err := rows.Scan(
			&v.InternalID, &v.ExternalID, &v.AuthorityName, &v.StateCode, &v.CityName,
			&v.IBGECode, &v.Title, &v.Description, &v.Summary, &v.Tags, &v.SourceLink,
			&v.CounterpartLink, &v.CounterpartName, &v.Modality,
			&v.EstimatedValue, &v.ItemCount, &v.AuctionAt, &v.PublishedAt, &v.UpdatedAt,
			&v.Status, &traceJSON, &v.Lat, &v.Lon,
		); err != nil {
			return nil, eris.Wrap(err, "gate: scan notice")
		}
		if len(traceJSON) > 0 {
			v.Trace = model.Trace{}
			if err := json.Unmarshal(traceJSON, &v.Trace); err != nil {
				return nil, eris.Wrap(err, "gate: unmarshal trace")
			}
		}
		data = append(data, v)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "gate: list notices iterate")
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(size) - 1) / int64(size))
	}
	return &Page{
		Data:       data,
		Total:      total,
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}, nil
}

// buildWhere assembles the shared predicate for the count and data queries.
// The fixed part hides quarantined rows, past auctions, and rows without a
// source link.
func (g *Gate) buildWhere(f Filter) (string, []any) {
	now := g.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	where := ` FROM notices n LEFT JOIN municipalities m ON n.ibge_code = m.ibge_code
	 WHERE n.status = 'published' AND n.auction_at >= $1 AND n.source_link <> ''`
	args := []any{today}

	add := func(clause string, value any) {
		where += fmt.Sprintf(clause, len(args)+1)
		args = append(args, value)
	}

	if f.State != "" {
		add(` AND n.state_code = $%d`, strings.ToUpper(strings.TrimSpace(f.State)))
	}
	if f.City != "" {
		add(` AND n.city_name ILIKE $%d`, "%"+f.City+"%")
	}
	if f.Tag != "" {
		add(` AND $%d = ANY(n.tags)`, f.Tag)
	}
	if f.MinValue != nil {
		add(` AND n.estimated_value >= $%d`, *f.MinValue)
	}
	if f.MaxValue != nil {
		add(` AND n.estimated_value <= $%d`, *f.MaxValue)
	}
	if f.From != nil {
		add(` AND n.auction_at >= $%d`, *f.From)
	}
	if f.To != nil {
		add(` AND n.auction_at <= $%d`, *f.To)
	}
	return where, args
}
