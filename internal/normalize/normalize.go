// Package normalize canonicalizes free-form notice values: modality
// spellings, tag vocabulary, and title/summary backfill. Everything here is
// pure lookup and keyword matching; nothing guesses.
package normalize

import (
	"github.com/lanceiro/radar-cli/internal/model"
)

// Config carries the keyword sets the normalizer matches against. The radar
// rules file is the usual origin.
type Config struct {
	TagDenylist   []string
	TagKeywords   map[string][]string
	OnlineWords   []string
	InPersonWords []string
}

// Normalizer bundles the canonicalization steps applied to every notice
// before the publication decision.
type Normalizer struct {
	scorer *Scorer
	tags   *TagCleaner
}

// New builds a Normalizer from the configured keyword sets.
func New(cfg Config) *Normalizer {
	return &Normalizer{
		scorer: NewScorer(cfg.OnlineWords, cfg.InPersonWords),
		tags:   NewTagCleaner(cfg.TagDenylist, cfg.TagKeywords),
	}
}

// Apply canonicalizes the notice in place. The modality already set on the
// notice is taken as the structured value; freeText is the title,
// description, and document text the scorers read.
func (n *Normalizer) Apply(notice *model.Notice, freeText string) {
	online, inPerson := n.scorer.Signals(freeText)
	notice.Modality = Decide(notice.Modality, online, inPerson)
	notice.Tags = n.tags.Clean(notice.Tags, freeText)
	notice.Title = BackfillTitle(notice.Title, notice.Summary, notice.Description)
	notice.Summary = BackfillSummary(notice.Summary, notice.Description)
	notice.SortTags()
}
