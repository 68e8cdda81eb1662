// Package engine holds the date arithmetic behind daily tasks, streaks, survey cadence,
// reminder cooldowns and the synthetic waste trend. Nothing here reads the wall clock or
// touches storage; callers pass "now" in the user's zone.
package engine

import (
	"fmt"
	"time"
)

// DayLayout is the storage format of a calendar day.
const DayLayout = "2006-01-02"

// DayOf returns the calendar day of t in t's own location.
func DayOf(t time.Time) string {
	return t.Format(DayLayout)
}

// DayBounds returns [start, end) of the calendar day containing t, in t's location.
// AddDate keeps the boundary on local midnight across DST changes.
func DayBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// ParseDay parses a YYYY-MM-DD day as UTC midnight.
func ParseDay(day string) (time.Time, error) {
	t, err := time.Parse(DayLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid day %q: %w", day, err)
	}
	return t, nil
}

// DaysBetween returns to - from in whole calendar days.
func DaysBetween(from, to string) (int, error) {
	a, err := ParseDay(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDay(to)
	if err != nil {
		return 0, err
	}
	return int(b.Sub(a).Hours() / 24), nil
}

// AddDays shifts a YYYY-MM-DD day by n days.
func AddDays(day string, n int) (string, error) {
	t, err := ParseDay(day)
	if err != nil {
		return "", err
	}
	return DayOf(t.AddDate(0, 0, n)), nil
}
