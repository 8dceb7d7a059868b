// Package resolve implements cascading multi-source field resolution: each
// notice field has an ordered list of strategies, tried until one produces a
// validated value.
package resolve

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lanceiro/radar-cli/internal/document"
	"github.com/lanceiro/radar-cli/pkg/pncp"
)

// Record is the working set strategies read from. Fields fill in as the
// pipeline fetches more material; strategies tolerate whatever is absent.
type Record struct {
	Stub        pncp.Stub
	Detail      *pncp.Detail // filled lazily on the first authoritative lookup
	ExternalID  string
	RawPayload  []byte
	Description string // stub object text plus complementary info
	DocText     string // concatenated plain text of PDF attachments
	Sheets      []*document.Sheet
	Now         time.Time
}

// Text returns the description and document text joined, for strategies that
// scan everything available.
func (r *Record) Text() string {
	if r.Description == "" {
		return r.DocText
	}
	if r.DocText == "" {
		return r.Description
	}
	return r.Description + "\n" + r.DocText
}

// clock returns the record's pinned time, or the wall clock when unset.
func (r *Record) clock() time.Time {
	if !r.Now.IsZero() {
		return r.Now
	}
	return time.Now()
}

// Strategy is one way of producing a candidate value for a field. A false ok
// is a miss; an error is a degraded source. Both let the cascade continue.
type Strategy interface {
	Source() string
	Try(ctx context.Context, r *Record) (value any, ok bool, err error)
}

// Attempt records one strategy outcome for the resolution trace.
type Attempt struct {
	Source string `json:"source"`
	Hit    bool   `json:"hit"`
	Error  string `json:"error,omitempty"`
}

// FieldResolution is the outcome of running one field's cascade.
type FieldResolution struct {
	Field    string    `json:"field"`
	Resolved bool      `json:"resolved"`
	Value    any       `json:"value,omitempty"`
	Source   string    `json:"source,omitempty"`
	Attempts []Attempt `json:"attempts"`
}

// Resolver holds the per-field cascades.
type Resolver struct {
	cascades map[string][]Strategy
}

// New creates a Resolver from a field-to-cascade map.
func New(cascades map[string][]Strategy) *Resolver {
	return &Resolver{cascades: cascades}
}

// Fields returns the field keys the resolver knows about.
func (r *Resolver) Fields() []string {
	fields := make([]string, 0, len(r.cascades))
	for f := range r.cascades {
		fields = append(fields, f)
	}
	return fields
}

// Resolve runs one field's cascade. Strategies are tried in order; the first
// validated candidate wins. Strategy errors are logged and the cascade
// continues with the next source.
func (r *Resolver) Resolve(ctx context.Context, field string, rec *Record) FieldResolution {
	res := FieldResolution{Field: field}

	for _, s := range r.cascades[field] {
		value, ok, err := s.Try(ctx, rec)
		att := Attempt{Source: s.Source(), Hit: ok && err == nil}
		if err != nil {
			att.Error = err.Error()
			zap.L().Debug("resolve: strategy failed, trying next",
				zap.String("field", field),
				zap.String("source", s.Source()),
				zap.String("external_id", rec.ExternalID),
				zap.Error(err),
			)
			res.Attempts = append(res.Attempts, att)
			continue
		}
		res.Attempts = append(res.Attempts, att)
		if ok {
			res.Resolved = true
			res.Value = value
			res.Source = s.Source()
			return res
		}
	}

	return res
}

// ResolveAll runs every configured cascade against the record.
func (r *Resolver) ResolveAll(ctx context.Context, rec *Record) map[string]FieldResolution {
	out := make(map[string]FieldResolution, len(r.cascades))
	for field := range r.cascades {
		out[field] = r.Resolve(ctx, field, rec)
	}
	return out
}
