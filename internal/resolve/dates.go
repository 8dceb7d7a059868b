package resolve

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dmyRe matches the DD/MM/YYYY form used in virtually every notice, with an
// optional trailing time ("às 10h", "ÀS 10:30", "as 14h30min"). The "às"
// requires its s so date ranges joined by a bare "a" don't read as times.
var dmyRe = regexp.MustCompile(`(?i)(\d{1,2})/(\d{1,2})/(\d{4})(?:\s*,?\s*[àa]s\s+(\d{1,2})(?:[h:](\d{2})?)?)?`)

// longFormRe matches written-out dates like "15 de março de 2026".
var longFormRe = regexp.MustCompile(`(?i)(\d{1,2})\s+de\s+([a-zçé]+)\s+de\s+(\d{4})`)

var ptMonths = map[string]time.Month{
	"janeiro":   time.January,
	"fevereiro": time.February,
	"marco":     time.March,
	"março":     time.March,
	"abril":     time.April,
	"maio":      time.May,
	"junho":     time.June,
	"julho":     time.July,
	"agosto":    time.August,
	"setembro":  time.September,
	"outubro":   time.October,
	"novembro":  time.November,
	"dezembro":  time.December,
}

// ParseDate extracts the first date in a pt-BR string, numeric or written
// out. The bool reports whether anything calendar-valid was found.
func ParseDate(s string) (time.Time, bool) {
	if m := dmyRe.FindStringSubmatch(s); m != nil {
		if t, ok := dateFromDMY(m); ok {
			return t, true
		}
	}
	if m := longFormRe.FindStringSubmatch(s); m != nil {
		if t, ok := dateFromLongForm(m); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

// dateFromDMY builds a time from a dmyRe submatch, folding in the optional
// hour and minute groups.
func dateFromDMY(m []string) (time.Time, bool) {
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if !calendarValid(year, month, day) {
		return time.Time{}, false
	}

	hour, minute := 0, 0
	if len(m) > 4 && m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		if hour > 23 {
			hour = 0
		} else if len(m) > 5 && m[5] != "" {
			minute, _ = strconv.Atoi(m[5])
			if minute > 59 {
				minute = 0
			}
		}
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, time.UTC), true
}

func dateFromLongForm(m []string) (time.Time, bool) {
	day, _ := strconv.Atoi(m[1])
	month, ok := ptMonths[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[3])
	if !calendarValid(year, int(month), day) {
		return time.Time{}, false
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC), true
}

// calendarValid rejects impossible dates like 31/02 before any plausibility
// window applies.
func calendarValid(year, month, day int) bool {
	if month < 1 || month > 12 || day < 1 || year < 1 {
		return false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return t.Year() == year && int(t.Month()) == month && t.Day() == day
}

// Plausible reports whether a candidate auction date falls inside the
// accepted window: year at least minYear and at most maxYearsAhead past now.
func Plausible(t time.Time, now time.Time, minYear, maxYearsAhead int) bool {
	if t.IsZero() {
		return false
	}
	return t.Year() >= minYear && t.Year() <= now.Year()+maxYearsAhead
}

// FirstPlausibleDate scans text for the first DD/MM/YYYY token that is both
// calendar-valid and inside the plausibility window.
func FirstPlausibleDate(text string, now time.Time, minYear, maxYearsAhead int) (time.Time, bool) {
	for _, m := range dmyRe.FindAllStringSubmatch(text, maxPatternMatches) {
		t, ok := dateFromDMY(m)
		if !ok {
			continue
		}
		if Plausible(t, now, minYear, maxYearsAhead) {
			return t, true
		}
	}
	return time.Time{}, false
}
