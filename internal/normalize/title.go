package normalize

import "strings"

// summaryMaxLen is how much of the description feeds a backfilled title or
// summary.
const summaryMaxLen = 200

// BackfillTitle fills an empty title from the summary, else from the head
// of the description. A non-empty title is never overwritten.
func BackfillTitle(title, summary, description string) string {
	if strings.TrimSpace(title) != "" {
		return title
	}
	if s := strings.TrimSpace(summary); s != "" {
		return Truncate(s, summaryMaxLen)
	}
	return Truncate(strings.TrimSpace(description), summaryMaxLen)
}

// BackfillSummary fills an empty summary from the head of the description.
func BackfillSummary(summary, description string) string {
	if strings.TrimSpace(summary) != "" {
		return summary
	}
	return Truncate(strings.TrimSpace(description), summaryMaxLen)
}

// Truncate shortens s to at most max runes.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return strings.TrimSpace(string(r[:max]))
}
