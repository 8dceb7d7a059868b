package resolve

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/lanceiro/radar-cli/pkg/pncp"
)

// Canonical field keys, used as cascade map keys and in resolution traces.
const (
	FieldAuctionAt       = "auction_at"
	FieldEstimatedValue  = "estimated_value"
	FieldItemCount       = "item_count"
	FieldCounterpartName = "counterpart_name"
)

// dateSnippet captures a numeric or written-out pt-BR date, with enough
// trailing slack to keep an ", às 10h" time attached.
const dateSnippet = `(\d{1,2}/\d{1,2}/\d{4}[^\n.;]{0,24}|\d{1,2}\s+de\s+[a-zçé]+\s+de\s+\d{4})`

// Date phrasings in descending confidence. The event phrase ("o leilão será
// realizado no dia …") is near-unambiguous; a bare date with a time marker
// is the weakest anchored form.
var (
	eventPhraseRe = regexp.MustCompile(`(?i)leil[ãa]o[^\n.;]{0,120}?realizad[oa]\s+(?:no\s+dia|em)\s+` + dateSnippet)
	labeledDateRe = regexp.MustCompile(`(?i)data\s+d[oa]\s+leil[ãa]o\s*:?\s*` + dateSnippet)
	timedDateRe   = regexp.MustCompile(`(?i)(\d{1,2})/(\d{1,2})/(\d{4})\s*,?\s*[àa]s\s+(\d{1,2})(?:[h:](\d{2}))?`)
)

// CascadeConfig carries what the cascade builders need: the tunable rules
// and an optional authoritative detail source.
type CascadeConfig struct {
	Rules Rules

	// FetchDetail, when set, becomes the first auction_at step. Nil skips
	// the live lookup entirely (offline runs, replays).
	FetchDetail func(ctx context.Context, r *Record) (*pncp.Detail, error)
}

// BuildCascades assembles the per-field binding orders.
func BuildCascades(cfg CascadeConfig) map[string][]Strategy {
	return map[string][]Strategy{
		FieldAuctionAt:       auctionAtCascade(cfg),
		FieldEstimatedValue:  estimatedValueCascade(),
		FieldItemCount:       itemCountCascade(cfg.Rules),
		FieldCounterpartName: counterpartNameCascade(),
	}
}

func descText(r *Record) string { return r.Description }
func docText(r *Record) string  { return r.DocText }
func allText(r *Record) string  { return r.Text() }

// auctionAtCascade resolves the single most important field. Order: live
// detail API, structured metadata already in hand, description phrasings,
// spreadsheet date columns, PDF phrasings, and finally the first plausible
// date-shaped token anywhere in the PDF text.
func auctionAtCascade(cfg CascadeConfig) []Strategy {
	rules := cfg.Rules

	plausible := func(r *Record, t time.Time) bool {
		return Plausible(t, r.clock(), rules.MinYear, rules.MaxYearsAhead)
	}
	pickOpens := func(r *Record) (any, bool) {
		if r.Detail == nil || r.Detail.ProposalOpensAt == nil {
			return nil, false
		}
		t := r.Detail.ProposalOpensAt.Time
		if t.IsZero() || !plausible(r, t) {
			return nil, false
		}
		return t, true
	}
	parseSnippet := func(m []string, r *Record) (any, bool) {
		t, ok := ParseDate(m[1])
		if !ok || !plausible(r, t) {
			return nil, false
		}
		return t, true
	}
	parseTimed := func(m []string, r *Record) (any, bool) {
		t, ok := dateFromDMY(m)
		if !ok || !plausible(r, t) {
			return nil, false
		}
		return t, true
	}
	parseCell := func(cell string, r *Record) (any, bool) {
		t, ok := ParseDate(cell)
		if !ok || !plausible(r, t) {
			return nil, false
		}
		return t, true
	}

	var cascade []Strategy
	if cfg.FetchDetail != nil {
		cascade = append(cascade, DetailLookup{Name: "detail_api", Fetch: cfg.FetchDetail, Pick: pickOpens})
	}
	return append(cascade,
		StructuredField{Name: "structured", Get: func(r *Record) (any, bool) {
			if v, ok := pickOpens(r); ok {
				return v, true
			}
			if r.Stub.ProposalOpensAt != nil {
				if t := r.Stub.ProposalOpensAt.Time; !t.IsZero() && plausible(r, t) {
					return t, true
				}
			}
			return nil, false
		}},
		TextPattern{Name: "description:event_phrase", Text: descText, Pattern: eventPhraseRe, Parse: parseSnippet},
		TextPattern{Name: "description:labeled_date", Text: descText, Pattern: labeledDateRe, Parse: parseSnippet},
		TextPattern{Name: "description:timed_date", Text: descText, Pattern: timedDateRe, Parse: parseTimed},
		SpreadsheetColumn{Name: "sheet:date_column", Header: dateHeader, Parse: parseCell},
		TextPattern{Name: "pdf:event_phrase", Text: docText, Pattern: eventPhraseRe, Parse: parseSnippet},
		TextPattern{Name: "pdf:labeled_date", Text: docText, Pattern: labeledDateRe, Parse: parseSnippet},
		TextPattern{Name: "pdf:timed_date", Text: docText, Pattern: timedDateRe, Parse: parseTimed},
		LastResortScan{Name: "pdf:first_date", Text: docText, Scan: func(text string, r *Record) (any, bool) {
			t, ok := FirstPlausibleDate(text, r.clock(), rules.MinYear, rules.MaxYearsAhead)
			if !ok {
				return nil, false
			}
			return t, true
		}},
	)
}

// dateHeader accepts the spreadsheet headers auction houses use for the
// event date.
func dateHeader(h string) bool {
	h = strings.ToLower(strings.TrimSpace(h))
	if h == "dt" || strings.HasPrefix(h, "dt ") || strings.HasPrefix(h, "dt_") {
		return true
	}
	return strings.Contains(h, "data") || strings.Contains(h, "abertura")
}

func estimatedValueCascade() []Strategy {
	return []Strategy{
		StructuredField{Name: "structured", Get: func(r *Record) (any, bool) {
			if r.Detail != nil && r.Detail.EstimatedTotal != nil && *r.Detail.EstimatedTotal > 0 {
				return *r.Detail.EstimatedTotal, true
			}
			if r.Stub.EstimatedTotal != nil && *r.Stub.EstimatedTotal > 0 {
				return *r.Stub.EstimatedTotal, true
			}
			return nil, false
		}},
		LastResortScan{Name: "text:anchored_amount", Text: allText, Scan: func(text string, _ *Record) (any, bool) {
			v, ok := FirstAnchoredAmount(text)
			if !ok {
				return nil, false
			}
			return v, true
		}},
	}
}

func itemCountCascade(rules Rules) []Strategy {
	return []Strategy{
		StructuredField{Name: "structured", Get: payloadItemCount},
		LastResortScan{Name: "pdf:lot_markers", Text: docText, Scan: func(text string, _ *Record) (any, bool) {
			n, ok := CountLots(text, rules.ItemScanLimit)
			if !ok {
				return nil, false
			}
			return n, true
		}},
	}
}

// payloadItemCount probes the raw listing payload for the item-count keys
// some publishing systems include; the typed stub drops them.
func payloadItemCount(r *Record) (any, bool) {
	if len(r.RawPayload) == 0 {
		return nil, false
	}
	var probe struct {
		QuantidadeItens *int `json:"quantidadeItens"`
		QuantidadeItems *int `json:"quantidadeItems"`
	}
	if err := json.Unmarshal(r.RawPayload, &probe); err != nil {
		return nil, false
	}
	if probe.QuantidadeItens != nil && *probe.QuantidadeItens > 0 {
		return *probe.QuantidadeItens, true
	}
	if probe.QuantidadeItems != nil && *probe.QuantidadeItems > 0 {
		return *probe.QuantidadeItems, true
	}
	return nil, false
}

func counterpartNameCascade() []Strategy {
	return []Strategy{
		StructuredField{Name: "structured", Get: func(r *Record) (any, bool) {
			name := strings.TrimSpace(r.Stub.UserName)
			if name == "" || !ValidPersonName(name) {
				return nil, false
			}
			return name, true
		}},
		LastResortScan{Name: "text:auctioneer_phrase", Text: allText, Scan: func(text string, _ *Record) (any, bool) {
			name, ok := ExtractAuctioneer(text)
			if !ok {
				return nil, false
			}
			return name, true
		}},
	}
}
