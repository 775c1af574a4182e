package utils

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var wsRe = regexp.MustCompile(`\s+`)

// DateLayout is the calendar-date format used in booking and cycle documents.
const DateLayout = "2006-01-02"

// ErrInvalidDateFormat is returned when a date is not YYYY-MM-DD.
var ErrInvalidDateFormat = errors.New("invalid date format, want YYYY-MM-DD")

// NormalizeEmail folds compatibility characters (full-width @, ligatures)
// before lower-casing so the same address always maps to the same key.
func NormalizeEmail(s string) string {
	s = norm.NFKC.String(strings.TrimSpace(s))
	return strings.ToLower(s)
}

// NormalizeCode upper-cases an invitation code and drops any whitespace.
func NormalizeCode(s string) string {
	s = norm.NFKC.String(s)
	return strings.ToUpper(wsRe.ReplaceAllString(s, ""))
}

// NormalizeSpaces trims and collapses inner whitespace.
func NormalizeSpaces(s string) string {
	return wsRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

// TrimMax trims a string to at most max bytes without splitting a rune.
func TrimMax(s string, max int) string {
	s = strings.TrimSpace(s)
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

// ParseDate parses a strict YYYY-MM-DD date at midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, ErrInvalidDateFormat
	}
	return t, nil
}
