package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBackfillTitle(t *testing.T) {
	tests := []struct {
		name        string
		title       string
		summary     string
		description string
		want        string
	}{
		{name: "existing title kept", title: "Leilão 5/2026", summary: "Resumo", description: "Desc", want: "Leilão 5/2026"},
		{name: "summary fills empty title", summary: "Resumo do edital", description: "Desc", want: "Resumo do edital"},
		{name: "description fills when both empty", description: "Alienação de bens móveis", want: "Alienação de bens móveis"},
		{name: "whitespace title treated as empty", title: "   ", summary: "Resumo", want: "Resumo"},
		{name: "all empty", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BackfillTitle(tt.title, tt.summary, tt.description))
		})
	}
}

func TestBackfillTitle_TruncatesLongDescription(t *testing.T) {
	long := strings.Repeat("leilão público ", 30)

	got := BackfillTitle("", "", long)
	assert.LessOrEqual(t, len([]rune(got)), summaryMaxLen)
	assert.True(t, strings.HasPrefix(long, got))
}

func TestBackfillSummary(t *testing.T) {
	assert.Equal(t, "Resumo", BackfillSummary("Resumo", "Desc"))
	assert.Equal(t, "Desc", BackfillSummary("", "Desc"))
	assert.Equal(t, "", BackfillSummary("", ""))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "curto", Truncate("curto", 200))
	assert.Equal(t, "ãã", Truncate("ããã", 2), "runes, not bytes")
	assert.Equal(t, "abc", Truncate("abc   def", 6), "trailing space trimmed")
}
