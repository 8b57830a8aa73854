package normalize

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the canonical event_date format.
const DateLayout = "2006-01-02"

// ClockLayout is the canonical event_time format.
const ClockLayout = "15:04"

var missingTokens = map[string]struct{}{
	"":     {},
	"-":    {},
	"--":   {},
	"na":   {},
	"n/a":  {},
	"nan":  {},
	"null": {},
	"none": {},
	"nil":  {},
	"#n/a": {},
}

func isMissing(s string) bool {
	_, ok := missingTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// ParseNumber coerces numeric-looking text such as "1,200", "$18.50" or
// "42%" to a float. ok is false for blanks and anything unparseable.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return 0, false
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSuffix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// ParseRate reads a ratio. "0.6" is 0.6 and "60%" is also 0.6.
func ParseRate(s string) (float64, bool) {
	v, ok := ParseNumber(s)
	if !ok {
		return 0, false
	}
	if strings.HasSuffix(strings.TrimSpace(s), "%") {
		v /= 100
	}
	return v, true
}

// ParseBool accepts the yes/no spellings used in venue policy columns.
func ParseBool(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "t", "1", "✅", "x":
		return true, true
	case "no", "n", "false", "f", "0", "❌":
		return false, true
	}
	return false, false
}

var dateLayouts = []string{
	DateLayout,
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"1-2-2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"1/2/2006 15:04",
	"1/2/2006 3:04 PM",
}

// ParseDate parses the date formats found in exported sheets. The result is
// truncated to a UTC calendar day.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return day(t), true
		}
	}
	// "3/5/2024 0:00" and similar: retry on the date part only.
	if i := strings.IndexAny(s, " T"); i > 0 {
		head := s[:i]
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, head); err == nil {
				return day(t), true
			}
		}
	}
	return time.Time{}, false
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var clockLayouts = []string{
	ClockLayout,
	"15:04:05",
	"3:04PM",
	"3:04:05PM",
	"3PM",
	"1504",
}

// ParseClock parses a free-form local clock time ("6:30 PM", "11am",
// "18:00") into hour and minute.
func ParseClock(s string) (hour, minute int, ok bool) {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return 0, 0, false
	}
	c := strings.ToUpper(s)
	c = strings.ReplaceAll(c, ".", "")
	c = strings.ReplaceAll(c, " ", "")
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, c); err == nil {
			return t.Hour(), t.Minute(), true
		}
	}
	return 0, 0, false
}

// PostalCode trims ZIP+4 suffixes and restores leading zeros lost by
// spreadsheet exports ("2134" -> "02134").
func PostalCode(s string) string {
	s = strings.TrimSpace(s)
	if isMissing(s) {
		return ""
	}
	if i := strings.IndexByte(s, '-'); i > 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ".0")
	if allDigits(s) && len(s) < 5 {
		s = strings.Repeat("0", 5-len(s)) + s
	}
	return strings.ToUpper(s)
}

func allDigits(s string) bool {
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

// Text collapses internal whitespace and trims the ends.
func Text(s string) string {
	if isMissing(s) {
		return ""
	}
	return strings.Join(strings.Fields(s), " ")
}
