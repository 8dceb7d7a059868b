package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pgxmock pools must satisfy the Pool interface used across the codebase.
var _ Pool = (pgxmock.PgxPoolIface)(nil)

func TestBulkUpsert_EmptyRows(t *testing.T) {
	n, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "municipalities",
		Columns:      []string{"ibge_code", "name"},
		ConflictKeys: []string{"ibge_code"},
	}, nil)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestBulkUpsert_NoColumns(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:        "municipalities",
		ConflictKeys: []string{"ibge_code"},
	}, [][]any{{"3550308", "São Paulo"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBulkUpsert_NoConflictKeys(t *testing.T) {
	_, err := BulkUpsert(context.TODO(), nil, UpsertConfig{
		Table:   "municipalities",
		Columns: []string{"ibge_code", "name"},
	}, [][]any{{"3550308", "São Paulo"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestBulkUpsert_Success(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"ibge_code", "name", "state_code"}
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_municipalities"}, cols).WillReturnResult(2)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	rows := [][]any{
		{"3550308", "São Paulo", "SP"},
		{"3304557", "Rio de Janeiro", "RJ"},
	}
	n, err := BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "municipalities",
		Columns:      cols,
		ConflictKeys: []string{"ibge_code"},
	}, rows)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBulkUpsert_CopyError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cols := []string{"ibge_code", "name"}
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_municipalities"}, cols).
		WillReturnError(errors.New("copy failed"))
	mock.ExpectRollback()

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "municipalities",
		Columns:      cols,
		ConflictKeys: []string{"ibge_code"},
	}, [][]any{{"3550308", "São Paulo"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "COPY into temp table")
}

func TestBulkUpsert_BeginError(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin().WillReturnError(errors.New("db error"))

	_, err = BulkUpsert(context.Background(), mock, UpsertConfig{
		Table:        "notices",
		Columns:      []string{"external_id"},
		ConflictKeys: []string{"external_id"},
	}, [][]any{{"123-1-2026"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "begin tx")
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"notices", `"notices"`},
		{"public.notices", `"public"."notices"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"external_id", "title", "auction_at"})
	assert.Equal(t, `"external_id", "title", "auction_at"`, result)
}
