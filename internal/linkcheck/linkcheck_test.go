package linkcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lanceiro/radar-cli/internal/model"
)

func testValidator() *Validator {
	return New(
		[]string{"gmail.com", "hotmail.com", "outlook.com", "yahoo.com.br", "bol.com.br", "uol.com.br", "terra.com.br"},
		[]string{".gov.br", ".jus.br", ".leg.br", ".mil.br"},
	)
}

func TestAcceptable(t *testing.T) {
	v := testValidator()

	tests := []struct {
		name       string
		raw        string
		wantLink   string
		wantDomain string
		wantOK     bool
	}{
		{
			name:       "bare www host normalizes to https",
			raw:        "www.example-auctions.com.br",
			wantLink:   "https://www.example-auctions.com.br",
			wantDomain: "example-auctions.com.br",
			wantOK:     true,
		},
		{
			name:       "full url kept as written",
			raw:        "https://leiloes.example.com.br/lote/42",
			wantLink:   "https://leiloes.example.com.br/lote/42",
			wantDomain: "leiloes.example.com.br",
			wantOK:     true,
		},
		{
			name:       "scheme-less origin link",
			raw:        "superbid.example.net/leilao/123",
			wantLink:   "https://superbid.example.net/leilao/123",
			wantDomain: "superbid.example.net",
			wantOK:     true,
		},
		{
			name:       "trailing sentence punctuation trimmed",
			raw:        "www.leiloesjudiciais.com.br.",
			wantLink:   "https://www.leiloesjudiciais.com.br",
			wantDomain: "leiloesjudiciais.com.br",
			wantOK:     true,
		},
		{name: "publication source host", raw: "https://pncp.gov.br/app/editais/10000000000100/2026/5"},
		{name: "any government host", raw: "https://compras.gov.br/aviso/1"},
		{name: "court host", raw: "www.tjsp.jus.br"},
		{name: "email provider", raw: "https://gmail.com"},
		{name: "email provider behind www", raw: "www.hotmail.com"},
		{name: "email address", raw: "leiloeiro@gmail.com"},
		{name: "ftp scheme", raw: "ftp://arquivos.example.com.br/edital.pdf"},
		{name: "hostname without dot", raw: "https://localhost"},
		{name: "plain prose word", raw: "Avaliação:"},
		{name: "empty", raw: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			link, domain, ok := v.Acceptable(tt.raw)
			require.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantLink, link)
			assert.Equal(t, tt.wantDomain, domain)
		})
	}
}

func TestFindCounterpart(t *testing.T) {
	v := testValidator()

	text := "Contato: leiloeiro@gmail.com. Edital completo em " +
		"https://pncp.gov.br/app/editais/10000000000100/2026/5. " +
		"Lances exclusivamente em www.superleiloes.example.com.br."

	link, domain, ok := v.FindCounterpart(text)
	require.True(t, ok)
	assert.Equal(t, "https://www.superleiloes.example.com.br", link)
	assert.Equal(t, "superleiloes.example.com.br", domain)
}

func TestFindCounterpart_NoCandidates(t *testing.T) {
	v := testValidator()

	_, _, ok := v.FindCounterpart("Leilão de veículos no pátio da prefeitura, lance mínimo R$ 1.000,00.")
	assert.False(t, ok)
}

func TestEvaluate(t *testing.T) {
	v := testValidator()

	t.Run("structured candidate wins over text", func(t *testing.T) {
		out := v.Evaluate(model.ModalityElectronic,
			"https://www.superbid.example.net/leilao/123",
			"Mais informações em www.outroleilao.example.com.br")
		assert.True(t, out.Found)
		assert.True(t, out.Valid)
		assert.Equal(t, "https://www.superbid.example.net/leilao/123", out.Link)
		assert.Equal(t, "superbid.example.net", out.Domain)
	})

	t.Run("rejected structured candidate degrades to text", func(t *testing.T) {
		out := v.Evaluate(model.ModalityElectronic,
			"https://pncp.gov.br/app/editais/10000000000100/2026/5",
			"Lances em www.superleiloes.example.com.br")
		assert.True(t, out.Found)
		assert.Equal(t, "superleiloes.example.com.br", out.Domain)
	})

	t.Run("in-person notice without a link is valid", func(t *testing.T) {
		out := v.Evaluate(model.ModalityInPerson, "", "Leilão presencial no auditório da prefeitura.")
		assert.False(t, out.Found)
		assert.True(t, out.Valid)
		assert.Empty(t, out.Link)
	})

	t.Run("electronic notice without a link is not valid", func(t *testing.T) {
		out := v.Evaluate(model.ModalityElectronic, "", "Leilão eletrônico, edital anexo.")
		assert.False(t, out.Found)
		assert.False(t, out.Valid)
	})

	t.Run("hybrid notice without a link is not valid", func(t *testing.T) {
		out := v.Evaluate(model.ModalityHybrid, "", "")
		assert.False(t, out.Valid)
	})
}
