package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidPersonName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{name: "two tokens", in: "Maria Souza", want: true},
		{name: "connector in the middle", in: "João de Barro", want: true},
		{name: "five tokens with connector", in: "Ana Clara Souza dos Santos", want: true},
		{name: "accented and hyphenated", in: "José Álvares-Cabral", want: true},
		{name: "abbreviated middle name", in: "Carlos A. Pereira", want: true},
		{name: "single token", in: "Maria", want: false},
		{name: "six tokens", in: "Ana Beatriz Souza Lima Costa Dias", want: false},
		{name: "lowercase first token", in: "maria Souza", want: false},
		{name: "connector at the start", in: "de Souza", want: false},
		{name: "connector at the end", in: "Maria de", want: false},
		{name: "digits inside", in: "Maria 123", want: false},
		{name: "only one capitalized", in: "Maria e e", want: false},
		{name: "empty", in: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidPersonName(tt.in))
		})
	}
}

func TestExtractAuctioneer(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
		ok   bool
	}{
		{
			name: "official auctioneer phrasing",
			text: "Leiloeiro Oficial: João Carlos de Almeida, telefone (11) 5555-0100",
			want: "João Carlos de Almeida",
			ok:   true,
		},
		{
			name: "feminine with parenthesized marker",
			text: "Leiloeira Pública: Maria Fernanda Souza conduz o certame",
			want: "Maria Fernanda Souza",
			ok:   true,
		},
		{
			name: "registry suffix trimmed",
			text: "Leiloeira: Maria Souza JUCESP 1234",
			want: "Maria Souza",
			ok:   true,
		},
		{
			name: "responsible party fallback",
			text: "Responsável: Pedro Henrique Lima",
			want: "Pedro Henrique Lima",
			ok:   true,
		},
		{
			name: "digits only candidate rejected",
			text: "Leiloeiro Oficial: 123456",
			ok:   false,
		},
		{
			name: "no phrasing at all",
			text: "O edital está disponível no portal.",
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractAuctioneer(tt.text)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestExtractAuctioneer_OfficialPhrasingWinsOverResponsible(t *testing.T) {
	text := "Responsável: Carlos Silva\nLeiloeiro Oficial: Ana Paula Souza"

	got, ok := ExtractAuctioneer(text)
	require.True(t, ok)
	assert.Equal(t, "Ana Paula Souza", got, "patterns are ranked, not positional")
}
