package normalize

import (
	"strings"

	"github.com/lanceiro/radar-cli/internal/model"
)

// modalityTable maps every folded spelling observed in PNCP data to its
// canonical modality. Pure lookup; unknown spellings stay Unknown rather
// than being guessed.
var modalityTable = map[string]model.Modality{
	"leilao eletronico":   model.ModalityElectronic,
	"leilao - eletronico": model.ModalityElectronic,
	"leilao online":       model.ModalityElectronic,
	"eletronico":          model.ModalityElectronic,
	"eletronica":          model.ModalityElectronic,
	"online":              model.ModalityElectronic,
	"on-line":             model.ModalityElectronic,

	"leilao presencial":   model.ModalityInPerson,
	"leilao - presencial": model.ModalityInPerson,
	"presencial":          model.ModalityInPerson,

	"leilao hibrido":          model.ModalityHybrid,
	"hibrido":                 model.ModalityHybrid,
	"semipresencial":          model.ModalityHybrid,
	"eletronico e presencial": model.ModalityHybrid,
	"presencial e eletronico": model.ModalityHybrid,
}

// CanonicalModality maps a raw modality spelling to the enum. Keys are
// folded before lookup, so casing and accents never matter.
func CanonicalModality(raw string) model.Modality {
	key := strings.Join(strings.Fields(Fold(raw)), " ")
	if m, ok := modalityTable[key]; ok {
		return m
	}
	return model.ModalityUnknown
}

// Scorer detects online and in-person signals in free text, each keyword
// set scored independently.
type Scorer struct {
	online   []string
	inPerson []string
}

// NewScorer folds the keyword sets once up front.
func NewScorer(onlineWords, inPersonWords []string) *Scorer {
	return &Scorer{
		online:   foldAll(onlineWords),
		inPerson: foldAll(inPersonWords),
	}
}

// Signals reports whether the text carries online and in-person indicators.
func (s *Scorer) Signals(text string) (online, inPerson bool) {
	folded := Fold(text)
	for _, w := range s.online {
		if strings.Contains(folded, w) {
			online = true
			break
		}
	}
	for _, w := range s.inPerson {
		if strings.Contains(folded, w) {
			inPerson = true
			break
		}
	}
	return online, inPerson
}

// Decide applies the contradiction table to a structured modality and the
// scorer signals. Corrections only flow away from InPerson: a structured
// Electronic or Hybrid value is trusted even when the text reads otherwise.
// With no structured value the signals are the only evidence.
func Decide(canonical model.Modality, online, inPerson bool) model.Modality {
	switch canonical {
	case model.ModalityElectronic, model.ModalityHybrid:
		return canonical
	case model.ModalityInPerson:
		switch {
		case online && inPerson:
			return model.ModalityHybrid
		case online:
			return model.ModalityElectronic
		}
		return model.ModalityInPerson
	}

	switch {
	case online && inPerson:
		return model.ModalityHybrid
	case online:
		return model.ModalityElectronic
	case inPerson:
		return model.ModalityInPerson
	}
	return model.ModalityUnknown
}
