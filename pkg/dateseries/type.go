// Package dateseries holds dense per-day value arrays over a closed date window.
// Every priced or metered quantity in this module travels as a Series.
package dateseries

import (
	"time"

	"github.com/pkg/errors"
)

var (
	// ErrRange is returned when a date or sub-window falls outside a series.
	ErrRange = errors.New("dateseries: date out of range")
	// ErrAlignment is returned by elementwise operations on series with different windows.
	ErrAlignment = errors.New("dateseries: series are not aligned")
)

// Series is a dense array with one slot per calendar day in [start, end].
// Dates are normalized to midnight UTC so day arithmetic is exact.
type Series struct {
	start  time.Time
	end    time.Time
	values []float64
}

// Day returns the calendar day y-m-d at midnight UTC.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the time of day, keeping the calendar date as seen in t's location.
func Truncate(t time.Time) time.Time {
	return Day(t.Year(), t.Month(), t.Day())
}

// DaysBetween returns the number of whole days from a to b (negative if b is before a).
func DaysBetween(a, b time.Time) int {
	return int(Truncate(b).Sub(Truncate(a)).Hours() / 24)
}

// ParseDay parses a YYYY-MM-DD date.
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "invalid date %q", s)
	}
	return t, nil
}
