package resolve

import (
	"regexp"
	"strings"
	"unicode"
)

// auctioneerRes are tried in order; the official-auctioneer phrasing is more
// reliable than the generic responsible-party one.
var auctioneerRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)leiloeir[oa](?:\s*\(a\))?\s+(?:oficial|p[úu]blic[oa])\s*:?\s*([^\n,;(]{4,80})`),
	regexp.MustCompile(`(?i)leiloeir[oa](?:\s*\(a\))?\s*:\s*([^\n,;(]{4,80})`),
	regexp.MustCompile(`(?i)respons[áa]vel\s*:\s*([^\n,;(]{4,80})`),
}

// connectors are the lowercase particles Brazilian names keep between
// capitalized tokens.
var connectors = map[string]bool{
	"de": true, "da": true, "do": true, "das": true, "dos": true, "e": true,
}

// ValidPersonName accepts 2 to 5 capitalized tokens, tolerating the usual
// lowercase connectors between them.
func ValidPersonName(s string) bool {
	tokens := strings.Fields(strings.TrimSpace(s))
	if len(tokens) < 2 || len(tokens) > 5 {
		return false
	}

	capitalized := 0
	for i, tok := range tokens {
		if connectors[strings.ToLower(tok)] {
			if i == 0 || i == len(tokens)-1 {
				return false
			}
			continue
		}
		runes := []rune(tok)
		if !unicode.IsUpper(runes[0]) || !unicode.IsLetter(runes[0]) {
			return false
		}
		for _, r := range runes[1:] {
			if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != '.' {
				return false
			}
		}
		capitalized++
	}

	return capitalized >= 2
}

// ExtractAuctioneer finds a counterpart name in text via the known phrasings,
// validated against the person-name shape.
func ExtractAuctioneer(text string) (string, bool) {
	for _, re := range auctioneerRes {
		for _, m := range re.FindAllStringSubmatch(text, maxPatternMatches) {
			candidate := tidyName(m[1])
			if ValidPersonName(candidate) {
				return candidate, true
			}
		}
	}
	return "", false
}

// tidyName trims trailing noise after the name: registry markers ("Maria
// Souza JUCESP 123"), digits, and sentence continuations ("Souza conduz o
// certame").
func tidyName(s string) string {
	s = strings.TrimSpace(s)

	tokens := strings.Fields(s)
	kept := tokens[:0]
	for _, tok := range tokens {
		bare := strings.Trim(tok, ".,;:")
		upper := strings.ToUpper(bare)
		if upper == "JUCESP" || upper == "JUCEMG" || upper == "JUCERJA" || upper == "MATRÍCULA" || upper == "MATRICULA" {
			break
		}
		if onlyDigits(bare) {
			break
		}
		if lowerStart(bare) && !connectors[strings.ToLower(bare)] {
			break
		}
		kept = append(kept, tok)
		if len(kept) == 5 {
			break
		}
	}

	for len(kept) > 0 && connectors[strings.ToLower(strings.Trim(kept[len(kept)-1], ".,;:"))] {
		kept = kept[:len(kept)-1]
	}

	return strings.TrimRight(strings.Join(kept, " "), ".,;: ")
}

func lowerStart(s string) bool {
	for _, r := range s {
		return unicode.IsLower(r)
	}
	return false
}

func onlyDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
