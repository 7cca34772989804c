// Package dates handles the display-format calendar dates used throughout
// the budget model ("Mar 5, 2025"). Every entity stores its date as a
// formatted string, so parsing has to be forgiving: callers that cannot
// surface an error substitute a fallback date instead.
package dates

import (
	"fmt"
	"time"
)

const (
	// Layout is the canonical display and persistence format for dates.
	Layout = "Jan 2, 2006"

	// StampLayout is the format used for mutation timestamps.
	StampLayout = "Jan 2, 2006 15:04:05"
)

// Parse parses a date in the canonical display format.
func Parse(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q want format %q: %w", s, Layout, err)
	}
	return t, nil
}

// ParseOr parses a date in the canonical format, returning fallback when the
// string is malformed.
func ParseOr(s string, fallback time.Time) time.Time {
	t, err := Parse(s)
	if err != nil {
		return fallback
	}
	return t
}

// Format renders a date in the canonical display format.
func Format(t time.Time) string {
	return t.Format(Layout)
}

// FormatStamp renders a mutation timestamp.
func FormatStamp(t time.Time) string {
	return t.Format(StampLayout)
}

// startOfDay normalizes a time to midnight UTC so that comparisons have
// day-level granularity regardless of clock or zone.
func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	return startOfDay(a).Equal(startOfDay(b))
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	ay, am, _ := a.Date()
	by, bm, _ := b.Date()
	return ay == by && am == bm
}

// AddMonths advances t by n calendar months, clamping the day of month to
// the last day of the target month (Jan 31 + 1 month = Feb 28/29, not Mar 3).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := first.AddDate(0, 1, -1).Day(); d > last {
		d = last
	}
	h, min, sec := t.Clock()
	return time.Date(first.Year(), first.Month(), d, h, min, sec, t.Nanosecond(), t.Location())
}

// DaysBetween returns the number of calendar days from from to to. The
// result is negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(startOfDay(to).Sub(startOfDay(from)) / (24 * time.Hour))
}

// OnOrAfter reports whether a falls on the same day as b or any later day.
func OnOrAfter(a, b time.Time) bool {
	return !startOfDay(a).Before(startOfDay(b))
}

// OnOrBefore reports whether a falls on the same day as b or any earlier day.
func OnOrBefore(a, b time.Time) bool {
	return !startOfDay(a).After(startOfDay(b))
}

// StrictlyAfter reports whether a falls on a later day than b.
func StrictlyAfter(a, b time.Time) bool {
	return startOfDay(a).After(startOfDay(b))
}
