package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanceiro/radar-cli/internal/model"
)

func newTestStore(t *testing.T) (*Store, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return New(mock), mock
}

// anyArgs returns n pgxmock.AnyArg matchers; pgxmock v4 requires the
// expectation's argument count to equal the call's, so "any arguments"
// must be spelled out explicitly.
func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func f64(v float64) *float64      { return &v }
func iptr(v int) *int             { return &v }
func tptr(v time.Time) *time.Time { return &v }

func testNotice() *model.Notice {
	auction := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	published := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	return &model.Notice{
		ExternalID:     "10000000000100-5-2026",
		AuthorityName:  "Prefeitura Municipal de Campinas",
		StateCode:      "SP",
		CityName:       "Campinas",
		IBGECode:       "3509502",
		Title:          "Leilão de veículos inservíveis",
		Description:    "O leilão será realizado no dia 15/03/2026, às 10h.",
		Summary:        "Leilão de veículos inservíveis",
		Tags:           []string{"veículos"},
		SourceLink:     "https://pncp.gov.br/app/editais/10000000000100/2026/5",
		Modality:       model.ModalityElectronic,
		EstimatedValue: f64(150000),
		ItemCount:      iptr(12),
		AuctionAt:      tptr(auction),
		PublishedAt:    tptr(published),
		Status:         model.StatusPublished,
		Trace: model.Trace{
			model.FieldAuctionAt: {Source: "detail_api", ResolvedAt: published},
		},
	}
}

func noticeRows(n *model.Notice) *pgxmock.Rows {
	cols := []string{
		"internal_id", "external_id", "authority_name", "state_code", "city_name",
		"ibge_code", "title", "description", "summary", "tags", "source_link",
		"counterpart_link", "counterpart_name", "modality", "estimated_value",
		"item_count", "auction_at", "published_at", "updated_at", "status",
		"quarantine_reason", "trace", "raw_payload",
	}
	return pgxmock.NewRows(cols).AddRow(
		n.InternalID, n.ExternalID, n.AuthorityName, n.StateCode, n.CityName,
		n.IBGECode, n.Title, n.Description, n.Summary, n.Tags, n.SourceLink,
		n.CounterpartLink, n.CounterpartName, n.Modality, n.EstimatedValue,
		n.ItemCount, n.AuctionAt, n.PublishedAt, n.UpdatedAt, n.Status,
		n.QuarantineReason, []byte(`{"auction_at":{"source":"detail_api","resolved_at":"2026-02-01T08:00:00Z"}}`),
		n.RawPayload,
	)
}

// --- Upsert ---

func TestUpsert_GeneratesInternalID(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO notices`).
		WithArgs(anyArgs(23)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n := testNotice()
	require.Empty(t, n.InternalID)
	require.NoError(t, st.Upsert(context.Background(), n))
	assert.NotEmpty(t, n.InternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_Idempotent(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO notices`).WithArgs(anyArgs(23)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO notices`).WithArgs(anyArgs(23)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n := testNotice()
	require.NoError(t, st.Upsert(context.Background(), n))
	first := n.InternalID

	require.NoError(t, st.Upsert(context.Background(), n))
	assert.Equal(t, first, n.InternalID, "replaying the upsert must not mint a new internal id")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_DefaultsStatusToPublished(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO notices`).WithArgs(anyArgs(23)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	n := testNotice()
	n.Status = ""
	require.NoError(t, st.Upsert(context.Background(), n))
	assert.Equal(t, model.StatusPublished, n.Status)
}

func TestUpsert_NilTagsStoredAsEmptyArray(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO notices`).WithArgs(anyArgs(23)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	// Untagged notices are routine: nothing in the text may match a
	// classifier keyword. The column is NOT NULL, so nil must not reach pgx.
	n := testNotice()
	n.Tags = nil
	require.NoError(t, st.Upsert(context.Background(), n))
	require.NotNil(t, n.Tags)
	assert.Empty(t, n.Tags)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_ExecError(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO notices`).WillReturnError(errors.New("connection reset"))

	err := st.Upsert(context.Background(), testNotice())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert notice")
}

// --- Get ---

func TestGet(t *testing.T) {
	st, mock := newTestStore(t)

	want := testNotice()
	want.InternalID = "e0a35f0a-0000-4000-8000-000000000001"
	mock.ExpectQuery(`SELECT .+ FROM notices WHERE external_id`).
		WithArgs(want.ExternalID).
		WillReturnRows(noticeRows(want))

	got, err := st.Get(context.Background(), want.ExternalID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.ExternalID, got.ExternalID)
	assert.Equal(t, want.AuthorityName, got.AuthorityName)
	assert.Equal(t, model.ModalityElectronic, got.Modality)
	require.NotNil(t, got.EstimatedValue)
	assert.Equal(t, 150000.0, *got.EstimatedValue)
	assert.Equal(t, "detail_api", got.Trace.Source(model.FieldAuctionAt))
}

func TestGet_Missing(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT .+ FROM notices WHERE external_id`).
		WithArgs("99999999999999-1-2026").
		WillReturnError(pgx.ErrNoRows)

	got, err := st.Get(context.Background(), "99999999999999-1-2026")
	require.NoError(t, err)
	assert.Nil(t, got)
}

// --- Quarantine / Republish ---

func TestQuarantine(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`UPDATE notices SET status`).
		WithArgs(string(model.StatusQuarantined), string(model.ReasonMissingAuctionDate), "10000000000100-5-2026").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := st.Quarantine(context.Background(), "10000000000100-5-2026", model.ReasonMissingAuctionDate)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuarantine_NotFound(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`UPDATE notices SET status`).
		WithArgs(string(model.StatusQuarantined), string(model.ReasonInvalidExternalID), "missing-id").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := st.Quarantine(context.Background(), "missing-id", model.ReasonInvalidExternalID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notice not found")
}

func TestRepublish(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`UPDATE notices SET status`).
		WithArgs(string(model.StatusPublished), "10000000000100-5-2026").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, st.Republish(context.Background(), "10000000000100-5-2026"))
}

// --- Listing ---

func TestListForAudit_OnlyUnresolved(t *testing.T) {
	st, mock := newTestStore(t)

	n := testNotice()
	n.InternalID = "e0a35f0a-0000-4000-8000-000000000002"
	mock.ExpectQuery(`auction_at IS NULL OR status`).
		WithArgs(50).
		WillReturnRows(noticeRows(n))

	got, err := st.ListForAudit(context.Background(), true, 50)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, n.ExternalID, got[0].ExternalID)
}

func TestListForAudit_DefaultLimit(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT .+ FROM notices`).
		WithArgs(100).
		WillReturnRows(noticeRows(testNotice()))

	_, err := st.ListForAudit(context.Background(), false, 0)
	require.NoError(t, err)
}

func TestListQuarantined(t *testing.T) {
	st, mock := newTestStore(t)

	n := testNotice()
	n.Status = model.StatusQuarantined
	n.QuarantineReason = model.ReasonMissingAuctionDate
	mock.ExpectQuery(`WHERE status`).
		WithArgs(string(model.StatusQuarantined), 20).
		WillReturnRows(noticeRows(n))

	got, err := st.ListQuarantined(context.Background(), 20)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.ReasonMissingAuctionDate, got[0].QuarantineReason)
}

func TestCounts(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectQuery(`SELECT status, COUNT`).
		WillReturnRows(pgxmock.NewRows([]string{"status", "count"}).
			AddRow(model.StatusPublished, int64(42)).
			AddRow(model.StatusQuarantined, int64(3)))

	counts, err := st.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), counts[model.StatusPublished])
	assert.Equal(t, int64(3), counts[model.StatusQuarantined])
}

// --- Attachments ---

func TestSaveAttachments(t *testing.T) {
	st, mock := newTestStore(t)

	mock.ExpectExec(`INSERT INTO attachments`).WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec(`INSERT INTO attachments`).WithArgs(anyArgs(6)...).WillReturnResult(pgxmock.NewResult("INSERT", 1))

	atts := []model.Attachment{
		{ExternalID: "10000000000100-5-2026", Title: "Edital", URL: "https://pncp.gov.br/docs/1.pdf"},
		{ExternalID: "10000000000100-5-2026", Title: "Anexo I", URL: "https://pncp.gov.br/docs/2.xlsx"},
	}
	require.NoError(t, st.SaveAttachments(context.Background(), atts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAttachments(t *testing.T) {
	st, mock := newTestStore(t)

	fetched := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM attachments`).
		WithArgs("10000000000100-5-2026").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "external_id", "title", "url", "content_type", "path", "fetched_at",
		}).AddRow(
			int64(1), "10000000000100-5-2026", "Edital", "https://pncp.gov.br/docs/1.pdf",
			"application/pdf", "blobs/ab/abcdef.pdf", tptr(fetched),
		))

	atts, err := st.Attachments(context.Background(), "10000000000100-5-2026")
	require.NoError(t, err)
	require.Len(t, atts, 1)
	assert.Equal(t, "Edital", atts[0].Title)
	assert.Equal(t, "blobs/ab/abcdef.pdf", atts[0].Path)
}
