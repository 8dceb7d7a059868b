package resolve

import (
	"regexp"
	"strconv"
	"strings"
)

// moneyRe matches pt-BR currency amounts: R$ 1.234.567,89 and the sloppy
// variants without the decimal part.
var moneyRe = regexp.MustCompile(`R\$\s*([\d.]+(?:,\d{1,2})?)`)

// anchoredMoneyRe requires a monetary keyword near the amount so page
// numbers and lot codes don't read as values.
var anchoredMoneyRe = regexp.MustCompile(`(?i)(?:valor|lance\s+m[íi]nimo|avalia[çc][ãa]o|arremate)[^\n]{0,80}?R\$\s*([\d.]+(?:,\d{1,2})?)`)

// ParseMoney converts a pt-BR formatted amount to float64. Thousands dots
// drop, the decimal comma becomes a point.
func ParseMoney(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// FirstAnchoredAmount finds the first keyword-anchored amount in text.
func FirstAnchoredAmount(text string) (float64, bool) {
	for _, m := range anchoredMoneyRe.FindAllStringSubmatch(text, maxPatternMatches) {
		if v, ok := ParseMoney(m[1]); ok {
			return v, true
		}
	}
	return 0, false
}
