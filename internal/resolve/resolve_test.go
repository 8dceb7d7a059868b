package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanceiro/radar-cli/internal/document"
	"github.com/lanceiro/radar-cli/pkg/pncp"
)

// scriptedStrategy implements Strategy for engine tests.
type scriptedStrategy struct {
	name  string
	value any
	ok    bool
	err   error
	calls int
}

func (s *scriptedStrategy) Source() string { return s.name }
func (s *scriptedStrategy) Try(_ context.Context, _ *Record) (any, bool, error) {
	s.calls++
	return s.value, s.ok, s.err
}

func ts(t time.Time) *pncp.Timestamp { return &pncp.Timestamp{Time: t} }

func testRecord() *Record {
	return &Record{
		ExternalID: "10000000000100-5-2026",
		Now:        time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestResolve_FirstValidWins(t *testing.T) {
	first := &scriptedStrategy{name: "a"}
	second := &scriptedStrategy{name: "b", value: 42, ok: true}
	third := &scriptedStrategy{name: "c", value: 99, ok: true}

	r := New(map[string][]Strategy{"field": {first, second, third}})
	res := r.Resolve(context.Background(), "field", testRecord())

	require.True(t, res.Resolved)
	assert.Equal(t, 42, res.Value)
	assert.Equal(t, "b", res.Source)
	assert.Equal(t, 0, third.calls, "cascade stops at the first hit")

	require.Len(t, res.Attempts, 2)
	assert.False(t, res.Attempts[0].Hit)
	assert.True(t, res.Attempts[1].Hit)
}

func TestResolve_ErrorDegradesToNextSource(t *testing.T) {
	failing := &scriptedStrategy{name: "api", err: eris.New("connection refused")}
	fallback := &scriptedStrategy{name: "pdf", value: "x", ok: true}

	r := New(map[string][]Strategy{"field": {failing, fallback}})
	res := r.Resolve(context.Background(), "field", testRecord())

	require.True(t, res.Resolved)
	assert.Equal(t, "pdf", res.Source)
	require.Len(t, res.Attempts, 2)
	assert.Contains(t, res.Attempts[0].Error, "connection refused")
	assert.False(t, res.Attempts[0].Hit)
}

func TestResolve_ExhaustionLeavesUnresolved(t *testing.T) {
	r := New(map[string][]Strategy{"field": {
		&scriptedStrategy{name: "a"},
		&scriptedStrategy{name: "b", err: eris.New("boom")},
	}})
	res := r.Resolve(context.Background(), "field", testRecord())

	assert.False(t, res.Resolved)
	assert.Nil(t, res.Value)
	assert.Empty(t, res.Source)
	assert.Len(t, res.Attempts, 2)
}

func TestResolve_UnknownFieldIsEmptyResolution(t *testing.T) {
	r := New(map[string][]Strategy{})
	res := r.Resolve(context.Background(), "nope", testRecord())

	assert.False(t, res.Resolved)
	assert.Empty(t, res.Attempts)
}

func TestBuildCascades_FieldCoverage(t *testing.T) {
	cascades := BuildCascades(CascadeConfig{Rules: DefaultRules()})

	for _, field := range []string{FieldAuctionAt, FieldEstimatedValue, FieldItemCount, FieldCounterpartName} {
		assert.NotEmpty(t, cascades[field], field)
	}

	r := New(cascades)
	assert.ElementsMatch(t, r.Fields(),
		[]string{FieldAuctionAt, FieldEstimatedValue, FieldItemCount, FieldCounterpartName})
}

func TestAuctionAt_AuthoritativeBeatsDocumentText(t *testing.T) {
	apiDate := time.Date(2026, 4, 10, 10, 0, 0, 0, time.UTC)
	detail := &pncp.Detail{ProposalOpensAt: ts(apiDate)}

	r := New(BuildCascades(CascadeConfig{
		Rules: DefaultRules(),
		FetchDetail: func(_ context.Context, _ *Record) (*pncp.Detail, error) {
			return detail, nil
		},
	}))

	rec := testRecord()
	rec.DocText = "O leilão será realizado no dia 15/03/2026, às 10h."

	res := r.Resolve(context.Background(), FieldAuctionAt, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "detail_api", res.Source)
	assert.Equal(t, apiDate, res.Value)
}

func TestAuctionAt_DegradesToDescriptionOnAPIError(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{
		Rules: DefaultRules(),
		FetchDetail: func(_ context.Context, _ *Record) (*pncp.Detail, error) {
			return nil, eris.New("dial tcp: connection refused")
		},
	}))

	rec := testRecord()
	rec.Description = "O leilão será realizado no dia 15/03/2026, às 10h, no auditório."

	res := r.Resolve(context.Background(), FieldAuctionAt, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "description:event_phrase", res.Source)
	assert.Equal(t, time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC), res.Value)

	require.NotEmpty(t, res.Attempts)
	assert.Equal(t, "detail_api", res.Attempts[0].Source)
	assert.NotEmpty(t, res.Attempts[0].Error)
}

func TestAuctionAt_StructuredStubDateAfterDetailMiss(t *testing.T) {
	stubDate := time.Date(2026, 5, 2, 9, 0, 0, 0, time.UTC)

	r := New(BuildCascades(CascadeConfig{
		Rules: DefaultRules(),
		FetchDetail: func(_ context.Context, _ *Record) (*pncp.Detail, error) {
			return nil, nil
		},
	}))

	rec := testRecord()
	rec.Stub.ProposalOpensAt = ts(stubDate)

	res := r.Resolve(context.Background(), FieldAuctionAt, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "structured", res.Source)
	assert.Equal(t, stubDate, res.Value)
}

func TestAuctionAt_LabeledDateInDescription(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.Description = "Alienação de bens. Data do leilão: 22/09/2026."

	res := r.Resolve(context.Background(), FieldAuctionAt, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "description:labeled_date", res.Source)
	assert.Equal(t, time.Date(2026, 9, 22, 0, 0, 0, 0, time.UTC), res.Value)
}

func TestAuctionAt_SpreadsheetColumn(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.Sheets = []*document.Sheet{{
		Name:    "Lotes",
		Headers: []string{"Lote", "Descrição", "Data do Leilão"},
		Rows: [][]string{
			{"01", "Veículo GM Celta", ""},
			{"02", "Sucata ferrosa", "20/04/2026"},
		},
	}}

	res := r.Resolve(context.Background(), FieldAuctionAt, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "sheet:date_column", res.Source)
	assert.Equal(t, time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC), res.Value)
}

func TestAuctionAt_LastResortScanOverPDF(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.DocText = "Processo 123/2021 autuado em 02/05/1999. Sessão pública em 18/11/2026."

	res := r.Resolve(context.Background(), FieldAuctionAt, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "pdf:first_date", res.Source)
	assert.Equal(t, time.Date(2026, 11, 18, 0, 0, 0, 0, time.UTC), res.Value)
}

func TestAuctionAt_ImplausibleDatesAreMisses(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.DocText = "Data do leilão: 15/03/1999. Referência histórica: 01/01/1998."

	res := r.Resolve(context.Background(), FieldAuctionAt, rec)
	assert.False(t, res.Resolved, "implausible years never resolve")
}

func TestEstimatedValue_StructuredFirst(t *testing.T) {
	v := 250000.0

	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.Stub.EstimatedTotal = &v
	rec.DocText = "Valor de avaliação: R$ 99.000,00"

	res := r.Resolve(context.Background(), FieldEstimatedValue, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "structured", res.Source)
	assert.Equal(t, 250000.0, res.Value)
}

func TestEstimatedValue_AnchoredAmountFromText(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.DocText = "Folha 3 de 12. Lance mínimo: R$ 45.000,00 para o lote 01."

	res := r.Resolve(context.Background(), FieldEstimatedValue, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "text:anchored_amount", res.Source)
	assert.Equal(t, 45000.0, res.Value)
}

func TestItemCount_FromRawPayload(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.RawPayload = []byte(`{"numeroControlePNCP":"x","quantidadeItens":7}`)

	res := r.Resolve(context.Background(), FieldItemCount, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "structured", res.Source)
	assert.Equal(t, 7, res.Value)
}

func TestItemCount_CountsDistinctLotMarkers(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.DocText = "LOTE 01 - Celta\nLOTE 02 - Gol\nLote nº 3 - Uno\nLOTE 01 - repetido"

	res := r.Resolve(context.Background(), FieldItemCount, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "pdf:lot_markers", res.Source)
	assert.Equal(t, 3, res.Value)
}

func TestCounterpartName_StructuredUserName(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.Stub.UserName = "Pedro Henrique Lima"

	res := r.Resolve(context.Background(), FieldCounterpartName, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "structured", res.Source)
	assert.Equal(t, "Pedro Henrique Lima", res.Value)
}

func TestCounterpartName_SystemUserFallsToDocumentText(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.Stub.UserName = "sistema-integrado-01"
	rec.DocText = "Leiloeiro Oficial: João Carlos de Almeida, JUCESP 1234"

	res := r.Resolve(context.Background(), FieldCounterpartName, rec)
	require.True(t, res.Resolved)
	assert.Equal(t, "text:auctioneer_phrase", res.Source)
	assert.Equal(t, "João Carlos de Almeida", res.Value)
}

func TestResolveAll_CoversEveryField(t *testing.T) {
	r := New(BuildCascades(CascadeConfig{Rules: DefaultRules()}))

	rec := testRecord()
	rec.Description = "O leilão será realizado no dia 15/03/2026. Lance mínimo: R$ 10.000,00"

	out := r.ResolveAll(context.Background(), rec)
	require.Len(t, out, 4)

	assert.True(t, out[FieldAuctionAt].Resolved)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), out[FieldAuctionAt].Value)
	assert.True(t, out[FieldEstimatedValue].Resolved)
	assert.Equal(t, 10000.0, out[FieldEstimatedValue].Value)
	assert.False(t, out[FieldItemCount].Resolved)
	assert.False(t, out[FieldCounterpartName].Resolved)
}
