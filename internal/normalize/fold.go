package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases and strips diacritical marks, producing the canonical key
// form every lookup and keyword scan uses. "Leilão Eletrônico" folds to
// "leilao eletronico".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// foldAll folds every member of a keyword list.
func foldAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if f := Fold(strings.TrimSpace(w)); f != "" {
			out = append(out, f)
		}
	}
	return out
}
