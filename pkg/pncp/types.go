package pncp

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// timestampLayout is the zone-less format PNCP uses for every datetime field.
const timestampLayout = "2006-01-02T15:04:05"

// Timestamp wraps time.Time to handle PNCP's zone-less datetime encoding,
// with and without fractional seconds.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON parses PNCP datetime strings. Null and empty values yield a
// zero Timestamp.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}

	for _, layout := range []string{
		timestampLayout,
		"2006-01-02T15:04:05.999999999",
		time.RFC3339,
		"2006-01-02",
	} {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}

	return eris.Errorf("pncp: unparseable timestamp %q", s)
}

// MarshalJSON renders the canonical PNCP layout.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + t.Format(timestampLayout) + `"`), nil
}

// Authority is the contracting body that published a notice.
type Authority struct {
	CNPJ      string `json:"cnpj"`
	LegalName string `json:"razaoSocial"`
	PowerID   string `json:"poderId"`
	SphereID  string `json:"esferaId"`
}

// Unit is the administrative unit inside the authority, carrying location.
type Unit struct {
	StateCode string `json:"ufSigla"`
	StateName string `json:"ufNome"`
	CityName  string `json:"municipioNome"`
	IBGECode  string `json:"codigoIbge"`
	UnitCode  string `json:"codigoUnidade"`
	UnitName  string `json:"nomeUnidade"`
}

// Stub is one record from the paginated publication listing. Field coverage
// is intentionally partial: the listing omits data the detail endpoint has.
type Stub struct {
	ControlNumber     string     `json:"numeroControlePNCP"`
	PurchaseYear      int        `json:"anoCompra"`
	PurchaseSeq       int        `json:"sequencialCompra"`
	PurchaseNumber    string     `json:"numeroCompra"`
	Process           string     `json:"processo"`
	Object            string     `json:"objetoCompra"`
	ComplementaryInfo string     `json:"informacaoComplementar"`
	ModalityID        int        `json:"modalidadeId"`
	ModalityName      string     `json:"modalidadeNome"`
	DisputeModeName   string     `json:"modoDisputaNome"`
	EstimatedTotal    *float64   `json:"valorTotalEstimado"`
	AwardedTotal      *float64   `json:"valorTotalHomologado"`
	StatusID          int        `json:"situacaoCompraId"`
	StatusName        string     `json:"situacaoCompraNome"`
	PublishedAt       *Timestamp `json:"dataPublicacaoPncp"`
	UpdatedAt         *Timestamp `json:"dataAtualizacao"`
	ProposalOpensAt   *Timestamp `json:"dataAberturaProposta"`
	ProposalClosesAt  *Timestamp `json:"dataEncerramentoProposta"`
	Authority         Authority  `json:"orgaoEntidade"`
	Unit              Unit       `json:"unidadeOrgao"`
	OriginSystemLink  string     `json:"linkSistemaOrigem"`
	UserName          string     `json:"usuarioNome"`

	// Raw holds the original listing element. Publishing systems include
	// keys the typed fields drop (item counts, mostly), and replays read
	// them from these bytes.
	Raw json.RawMessage `json:"-"`
}

// Page is the envelope wrapping every paginated listing response.
type Page struct {
	Data       []Stub `json:"data"`
	Total      int    `json:"totalRegistros"`
	TotalPages int    `json:"totalPaginas"`
	PageNumber int    `json:"numeroPagina"`
	Remaining  int    `json:"paginasRestantes"`
	Empty      bool   `json:"empty"`
}

// UnmarshalJSON decodes the envelope element by element so every stub keeps
// its original bytes in Raw.
func (p *Page) UnmarshalJSON(data []byte) error {
	var env struct {
		Data       []json.RawMessage `json:"data"`
		Total      int               `json:"totalRegistros"`
		TotalPages int               `json:"totalPaginas"`
		PageNumber int               `json:"numeroPagina"`
		Remaining  int               `json:"paginasRestantes"`
		Empty      bool              `json:"empty"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	p.Total = env.Total
	p.TotalPages = env.TotalPages
	p.PageNumber = env.PageNumber
	p.Remaining = env.Remaining
	p.Empty = env.Empty

	p.Data = make([]Stub, 0, len(env.Data))
	for _, raw := range env.Data {
		var s Stub
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		s.Raw = raw
		p.Data = append(p.Data, s)
	}
	return nil
}

// Detail is the per-notice response. It repeats the stub fields and is the
// authoritative source for the proposal-opening date.
type Detail struct {
	ControlNumber     string     `json:"numeroControlePNCP"`
	PurchaseYear      int        `json:"anoCompra"`
	PurchaseSeq       int        `json:"sequencialCompra"`
	Process           string     `json:"processo"`
	Object            string     `json:"objetoCompra"`
	ComplementaryInfo string     `json:"informacaoComplementar"`
	ModalityID        int        `json:"modalidadeId"`
	ModalityName      string     `json:"modalidadeNome"`
	EstimatedTotal    *float64   `json:"valorTotalEstimado"`
	AwardedTotal      *float64   `json:"valorTotalHomologado"`
	PublishedAt       *Timestamp `json:"dataPublicacaoPncp"`
	UpdatedAt         *Timestamp `json:"dataAtualizacao"`
	ProposalOpensAt   *Timestamp `json:"dataAberturaProposta"`
	ProposalClosesAt  *Timestamp `json:"dataEncerramentoProposta"`
	Authority         Authority  `json:"orgaoEntidade"`
	Unit              Unit       `json:"unidadeOrgao"`
	OriginSystemLink  string     `json:"linkSistemaOrigem"`
}

// Attachment describes one file published with a notice. PNCP exposes the
// download location as url on newer records and uri on older ones.
type Attachment struct {
	Seq          int        `json:"sequencialDocumento"`
	Title        string     `json:"titulo"`
	DocumentType string     `json:"tipoDocumentoNome"`
	URL          string     `json:"url"`
	URI          string     `json:"uri"`
	Active       bool       `json:"statusAtivo"`
	PublishedAt  *Timestamp `json:"dataPublicacaoPncp"`
}

// Link returns the usable download location for the attachment.
func (a Attachment) Link() string {
	if a.URL != "" {
		return a.URL
	}
	return a.URI
}

// Window bounds a publication-date query, inclusive on both ends.
type Window struct {
	From time.Time
	To   time.Time
}

// Auction modality codes in the PNCP taxonomy.
const (
	ModalityElectronicAuction = 1
	ModalityInPersonAuction   = 13
)
