// Package model defines the canonical notice record, run telemetry, and the
// enumerations shared across the collection and audit stages.
package model

import (
	"sort"
	"strings"
	"time"
)

// Modality is the auction's conduct mode.
type Modality string

const (
	ModalityElectronic Modality = "electronic"
	ModalityInPerson   Modality = "in_person"
	ModalityHybrid     Modality = "hybrid"
	ModalityUnknown    Modality = "unknown"
)

// Status marks whether a stored notice is visible to the publication gate.
type Status string

const (
	StatusPublished   Status = "published"
	StatusQuarantined Status = "quarantined"
)

// QuarantineReason codes why a notice was withheld from publication.
type QuarantineReason string

const (
	ReasonMissingAuctionDate QuarantineReason = "missing_auction_date"
	ReasonInvalidExternalID  QuarantineReason = "invalid_external_id"
)

// StateUnknown is the sentinel state code for invalid or missing UFs.
// Invalid input is coerced, never rejected.
const StateUnknown = "XX"

var validStates = map[string]bool{
	"AC": true, "AL": true, "AP": true, "AM": true, "BA": true, "CE": true,
	"DF": true, "ES": true, "GO": true, "MA": true, "MT": true, "MS": true,
	"MG": true, "PA": true, "PB": true, "PR": true, "PE": true, "PI": true,
	"RJ": true, "RN": true, "RS": true, "RO": true, "RR": true, "SC": true,
	"SP": true, "SE": true, "TO": true,
}

// NormalizeState maps free-form input to a canonical two-letter federative
// unit code, or StateUnknown for anything outside the fixed enumeration.
func NormalizeState(s string) string {
	uf := strings.ToUpper(strings.TrimSpace(s))
	if validStates[uf] {
		return uf
	}
	return StateUnknown
}

// States returns every canonical federative unit code in sorted order.
func States() []string {
	out := make([]string, 0, len(validStates))
	for uf := range validStates {
		out = append(out, uf)
	}
	sort.Strings(out)
	return out
}

// Field keys used by the resolution trace and the resolver cascades.
const (
	FieldAuctionAt       = "auction_at"
	FieldEstimatedValue  = "estimated_value"
	FieldItemCount       = "item_count"
	FieldCounterpartName = "counterpart_name"
	FieldCounterpartLink = "counterpart_link"
	FieldModality        = "modality"
)

// Resolution records which source satisfied a field and when.
type Resolution struct {
	Source     string    `json:"source"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Trace maps field keys to the source that resolved them. It is persisted
// alongside the notice so provenance is inspectable without re-deriving it.
type Trace map[string]Resolution

// Set records the winning source for a field.
func (t Trace) Set(field, source string, at time.Time) {
	t[field] = Resolution{Source: source, ResolvedAt: at}
}

// Source returns the source tag that resolved a field, or "".
func (t Trace) Source(field string) string {
	return t[field].Source
}

// Notice is the canonical auction record. ExternalID is the idempotency key
// for every upsert; InternalID is locally generated and used for joins only.
type Notice struct {
	InternalID       string           `json:"internal_id"`
	ExternalID       string           `json:"external_id"`
	AuthorityName    string           `json:"authority_name"`
	StateCode        string           `json:"state_code"`
	CityName         string           `json:"city_name"`
	IBGECode         string           `json:"ibge_code,omitempty"`
	Title            string           `json:"title"`
	Description      string           `json:"description"`
	Summary          string           `json:"summary"`
	Tags             []string         `json:"tags,omitempty"`
	SourceLink       string           `json:"source_link"`
	CounterpartLink  string           `json:"counterpart_link,omitempty"`
	CounterpartName  string           `json:"counterpart_name,omitempty"`
	Modality         Modality         `json:"modality"`
	EstimatedValue   *float64         `json:"estimated_value,omitempty"`
	ItemCount        *int             `json:"item_count,omitempty"`
	AuctionAt        *time.Time       `json:"auction_at,omitempty"`
	PublishedAt      *time.Time       `json:"published_at,omitempty"`
	UpdatedAt        *time.Time       `json:"updated_at,omitempty"`
	Status           Status           `json:"status"`
	QuarantineReason QuarantineReason `json:"quarantine_reason,omitempty"`
	Trace            Trace            `json:"trace,omitempty"`
	RawPayload       []byte           `json:"-"`
}

// SortTags orders the tag set so repeated runs store identical rows.
func (n *Notice) SortTags() {
	sort.Strings(n.Tags)
}

// Unresolved reports whether the notice still lacks its mandatory field.
func (n *Notice) Unresolved() bool {
	return n.AuctionAt == nil
}

// Attachment is one original document fetched for a notice, archived through
// the document store.
type Attachment struct {
	ID          int64      `json:"id,omitempty"`
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	ContentType string     `json:"content_type,omitempty"`
	Path        string     `json:"path,omitempty"`
	FetchedAt   *time.Time `json:"fetched_at,omitempty"`
}

// CounterpartDomain is one registry row accumulated by the link validator.
type CounterpartDomain struct {
	Domain      string    `json:"domain"`
	ExampleURL  string    `json:"example_url"`
	Occurrences int64     `json:"occurrences"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
}

// Municipality is one geo reference row loaded from the IBGE shapefiles.
type Municipality struct {
	IBGECode  string  `json:"ibge_code"`
	Name      string  `json:"name"`
	StateCode string  `json:"state_code"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Geom      []byte  `json:"-"` // WKB point
}
