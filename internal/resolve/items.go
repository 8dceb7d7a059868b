package resolve

import (
	"regexp"
	"strconv"
)

// lotMarkerRe matches the per-lot headings auction documents use: "LOTE 01",
// "Lote nº 3", "ITEM 12".
var lotMarkerRe = regexp.MustCompile(`(?i)\b(?:lote|item)\s+(?:n[ºo°.]?\s*)?0*(\d{1,4})\b`)

// defaultScanLimit bounds how much document text the lot counter reads; lot
// listings live in the opening pages, and appendices repeat the markers.
const defaultScanLimit = 20000

// CountLots counts distinct lot numbers within the first limit characters of
// text. Repeated mentions of the same lot count once.
func CountLots(text string, limit int) (int, bool) {
	if limit <= 0 {
		limit = defaultScanLimit
	}
	if len(text) > limit {
		text = text[:limit]
	}

	seen := make(map[int]bool)
	for _, m := range lotMarkerRe.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			continue
		}
		seen[n] = true
	}

	if len(seen) == 0 {
		return 0, false
	}
	return len(seen), true
}
