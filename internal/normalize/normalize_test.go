package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lanceiro/radar-cli/internal/model"
)

func testConfig() Config {
	return Config{
		TagDenylist: []string{"teste", "interno", "homologação", "rascunho", "robô"},
		TagKeywords: map[string][]string{
			"veículos": {"veículo", "veiculo", "automóvel", "carro"},
			"sucata":   {"sucata", "ferroso"},
		},
		OnlineWords:   []string{"eletrônico", "online", "on-line", "internet", "www.", "plataforma"},
		InPersonWords: []string{"presencial", "presencialmente", "auditório", "comparecimento"},
	}
}

func TestApply_ContradictionOverride(t *testing.T) {
	n := New(testConfig())

	notice := &model.Notice{
		Modality:    model.ModalityInPerson,
		Description: "Leilão de veículos oficiais.",
	}
	n.Apply(notice, "leilão online "+notice.Description)

	assert.Equal(t, model.ModalityElectronic, notice.Modality,
		"structured in-person plus online-only text reads electronic")
	assert.Equal(t, []string{"veículos"}, notice.Tags)
	assert.Equal(t, "Leilão de veículos oficiais.", notice.Title)
	assert.Equal(t, "Leilão de veículos oficiais.", notice.Summary)
}

func TestApply_BothSignalsMakeHybrid(t *testing.T) {
	n := New(testConfig())

	notice := &model.Notice{Modality: model.ModalityInPerson}
	n.Apply(notice, "lances pela plataforma e presencialmente no auditório")

	assert.Equal(t, model.ModalityHybrid, notice.Modality)
}

func TestApply_ElectronicNeverDowngraded(t *testing.T) {
	n := New(testConfig())

	notice := &model.Notice{Modality: model.ModalityElectronic}
	n.Apply(notice, "comparecimento presencial obrigatório no auditório")

	assert.Equal(t, model.ModalityElectronic, notice.Modality)
}

func TestApply_TagHygieneAndTitlePreserved(t *testing.T) {
	n := New(testConfig())

	notice := &model.Notice{
		Title:    "Edital 12/2026",
		Tags:     []string{"TESTE", "Sucata", "robô"},
		Modality: model.ModalityUnknown,
	}
	n.Apply(notice, "")

	assert.Equal(t, []string{"Sucata"}, notice.Tags)
	assert.Equal(t, "Edital 12/2026", notice.Title)
	assert.Equal(t, model.ModalityUnknown, notice.Modality)
}
