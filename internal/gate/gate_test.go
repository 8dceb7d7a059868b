package gate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanceiro/radar-cli/internal/model"
)

func newTestGate(t *testing.T, now time.Time) (*Gate, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	g := New(mock).WithNow(func() time.Time { return now })
	return g, mock
}

func fptr(v float64) *float64   { return &v }
func tp(v time.Time) *time.Time { return &v }

var viewCols = []string{
	"internal_id", "external_id", "authority_name", "state_code", "city_name",
	"ibge_code", "title", "description", "summary", "tags", "source_link",
	"counterpart_link", "counterpart_name", "modality", "estimated_value",
	"item_count", "auction_at", "published_at", "updated_at", "status",
	"trace", "lat", "lon",
}

func viewRow(rows *pgxmock.Rows, externalID string, auctionAt time.Time) *pgxmock.Rows {
	return rows.AddRow(
		"e0a35f0a-0000-4000-8000-000000000001", externalID,
		"Prefeitura Municipal de Campinas", "SP", "Campinas", "3509502",
		"Leilão de veículos", "Descrição", "Resumo", []string{"veículos"},
		"https://pncp.gov.br/app/editais/10000000000100/2026/5",
		"", "", model.ModalityElectronic, fptr(150000), (*int)(nil),
		tp(auctionAt), tp(auctionAt.AddDate(0, -1, 0)), (*time.Time)(nil),
		model.StatusPublished, []byte(`{}`), fptr(-22.9), fptr(-47.06),
	)
}

func TestList_TemporalBoundaryIsStartOfDay(t *testing.T) {
	now := time.Date(2026, 2, 1, 15, 30, 0, 0, time.UTC)
	boundary := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	g, mock := newTestGate(t, now)

	auction := time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(boundary).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	mock.ExpectQuery(`ORDER BY n.auction_at ASC`).
		WithArgs(boundary, 20, 0).
		WillReturnRows(viewRow(pgxmock.NewRows(viewCols), "10000000000100-5-2026", auction))

	page, err := g.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "10000000000100-5-2026", page.Data[0].ExternalID)
	assert.Equal(t, int64(1), page.Total)
	require.NotNil(t, page.Data[0].Lat)
	assert.InDelta(t, -22.9, *page.Data[0].Lat, 0.001)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_StateAndTagFilters(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	boundary := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	g, mock := newTestGate(t, now)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(boundary, "SP", "veículos").
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`state_code`).
		WithArgs(boundary, "SP", "veículos", 20, 0).
		WillReturnRows(pgxmock.NewRows(viewCols))

	page, err := g.List(context.Background(), Filter{State: " sp ", Tag: "veículos"})
	require.NoError(t, err)
	assert.Empty(t, page.Data)
	assert.Equal(t, 0, page.TotalPages)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_ValueAndDateRange(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	boundary := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	g, mock := newTestGate(t, now)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(boundary, 1000.0, 50000.0, from, to).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`estimated_value`).
		WithArgs(boundary, 1000.0, 50000.0, from, to, 20, 0).
		WillReturnRows(pgxmock.NewRows(viewCols))

	_, err := g.List(context.Background(), Filter{
		MinValue: fptr(1000),
		MaxValue: fptr(50000),
		From:     &from,
		To:       &to,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestList_EmptyPageSerializesAsArray(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	boundary := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	g, mock := newTestGate(t, now)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(boundary).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`LIMIT`).
		WithArgs(boundary, 20, 0).
		WillReturnRows(pgxmock.NewRows(viewCols))

	page, err := g.List(context.Background(), Filter{})
	require.NoError(t, err)
	require.NotNil(t, page.Data)

	body, err := json.Marshal(page)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"data":[]`)
}

func TestList_Pagination(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	boundary := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	g, mock := newTestGate(t, now)

	auction := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(boundary).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(45)))
	mock.ExpectQuery(`LIMIT \$2 OFFSET \$3`).
		WithArgs(boundary, 20, 40).
		WillReturnRows(viewRow(pgxmock.NewRows(viewCols), "10000000000100-5-2026", auction))

	page, err := g.List(context.Background(), Filter{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Page)
	assert.Equal(t, 20, page.PageSize)
	assert.Equal(t, int64(45), page.Total)
	assert.Equal(t, 3, page.TotalPages)
}

func TestList_PageSizeClamped(t *testing.T) {
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	boundary := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	g, mock := newTestGate(t, now)

	mock.ExpectQuery(`SELECT COUNT`).
		WithArgs(boundary).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
	mock.ExpectQuery(`LIMIT`).
		WithArgs(boundary, 100, 0).
		WillReturnRows(pgxmock.NewRows(viewCols))

	page, err := g.List(context.Background(), Filter{PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, 100, page.PageSize)
}

func TestList_SortMapping(t *testing.T) {
	tests := []struct {
		name      string
		sort      string
		wantOrder string
	}{
		{name: "soonest is the default", sort: "", wantOrder: `ORDER BY n.auction_at ASC`},
		{name: "unknown falls back to soonest", sort: "sideways", wantOrder: `ORDER BY n.auction_at ASC`},
		{name: "farthest", sort: "farthest", wantOrder: `ORDER BY n.auction_at DESC`},
		{name: "newest", sort: "newest", wantOrder: `ORDER BY n.published_at DESC`},
		{name: "oldest", sort: "oldest", wantOrder: `ORDER BY n.published_at ASC`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
			g, mock := newTestGate(t, now)

			mock.ExpectQuery(`SELECT COUNT`).
				WithArgs(pgxmock.AnyArg()).
				WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(0)))
			mock.ExpectQuery(tt.wantOrder).
				WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
				WillReturnRows(pgxmock.NewRows(viewCols))

			_, err := g.List(context.Background(), Filter{Sort: tt.sort})
			require.NoError(t, err)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
