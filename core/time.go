package core

import (
	"time"

	"github.com/pkg/errors"
)

// DateFormat is the wire format for calendar dates.
const DateFormat = "2006-01-02"

var errInvalidDate = errors.New("invalid date; expected YYYY-MM-DD")

// ParseDate parses a YYYY-MM-DD string into a UTC-midnight time.Time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return t.UTC(), nil
}

// DateOf truncates t to UTC midnight.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// WeekStart returns the Monday-aligned start of t's week at UTC midnight.
// WeekStart(Sunday) is the previous Monday; WeekStart is idempotent.
func WeekStart(t time.Time) time.Time {
	d := DateOf(t)
	// 0 (Sunday) .. 6 (Saturday) -> days since Monday
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDate(0, 0, -offset)
}

// WeekdayIndex returns t's position within its Monday-aligned week: 0 (Monday) .. 6 (Sunday).
func WeekdayIndex(t time.Time) int {
	return (int(t.UTC().Weekday()) + 6) % 7
}
