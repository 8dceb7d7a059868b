package normalize

import (
	"sort"
	"strings"
)

// TagCleaner drops internal/control tags and, when nothing survives,
// assigns vocabulary tags from a keyword classifier.
type TagCleaner struct {
	denylist map[string]bool
	keywords map[string][]string
}

// NewTagCleaner folds the denylist and the classifier vocabulary once.
func NewTagCleaner(denylist []string, keywords map[string][]string) *TagCleaner {
	c := &TagCleaner{
		denylist: make(map[string]bool, len(denylist)),
		keywords: make(map[string][]string, len(keywords)),
	}
	for _, tag := range denylist {
		c.denylist[Fold(strings.TrimSpace(tag))] = true
	}
	for tag, words := range keywords {
		c.keywords[tag] = foldAll(words)
	}
	return c
}

// Clean removes denylisted members under any casing or accenting and
// deduplicates. Only when the set comes out empty does the classifier
// assign tags from the text.
func (c *TagCleaner) Clean(tags []string, text string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := Fold(trimmed)
		if c.denylist[key] || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, trimmed)
	}

	if len(out) > 0 {
		return out
	}
	return c.Classify(text)
}

// Classify returns the vocabulary tags whose keywords appear in the text,
// sorted for stable storage.
func (c *TagCleaner) Classify(text string) []string {
	if text == "" {
		return nil
	}
	folded := Fold(text)

	var out []string
	for tag, words := range c.keywords {
		for _, w := range words {
			if strings.Contains(folded, w) {
				out = append(out, tag)
				break
			}
		}
	}

	sort.Strings(out)
	return out
}
