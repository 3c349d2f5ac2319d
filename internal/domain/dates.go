package domain

import (
	"fmt"
	"strings"
	"time"
)

// ordinalEpochOffset is the proleptic Gregorian ordinal of 1970-01-01 (0001-01-01 is day 1).
const ordinalEpochOffset = 719163

// DateLayout is the ISO calendar date layout used by documents and transports.
const DateLayout = "2006-01-02"

// MonthLayout is the layout of forecast month keys.
const MonthLayout = "2006-01"

// Day drops the time-of-day component and returns the calendar day at UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthStart returns the first day of t's month.
func MonthStart(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths adds n calendar months, clamping the day to the end of the target month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	target := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	if last := daysIn(target); d > last {
		d = last
	}
	return time.Date(target.Year(), target.Month(), d, 0, 0, 0, 0, time.UTC)
}

// AddDays adds n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

func daysIn(monthStart time.Time) int {
	return time.Date(monthStart.Year(), monthStart.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DaysBetween returns the whole days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// WholeMonthsBetween returns the signed number of complete months from a to b.
func WholeMonthsBetween(a, b time.Time) int {
	a, b = Day(a), Day(b)
	months := (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
	switch {
	case months > 0 && b.Day() < a.Day():
		months--
	case months < 0 && b.Day() > a.Day():
		months++
	}
	return months
}

// Ordinal returns the proleptic Gregorian day number of t's calendar day.
func Ordinal(t time.Time) int {
	return int(Day(t).Unix()/86400) + ordinalEpochOffset
}

// FromOrdinal is the inverse of Ordinal.
func FromOrdinal(ordinal int) time.Time {
	return time.Unix(int64(ordinal-ordinalEpochOffset)*86400, 0).UTC()
}

// MaxMonth returns the later of two months.
func MaxMonth(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}

// ParseDate parses a user-entered calendar date. ISO and US slash forms are accepted.
func ParseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: priority date", ErrMissingSelection)
	}
	for _, layout := range []string{DateLayout, "01/02/2006", "1/2/2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
}

// FormatDay renders a calendar day for display.
func FormatDay(t time.Time) string {
	return t.Format("01/02/2006")
}

// FormatMonth renders a month for display.
func FormatMonth(t time.Time) string {
	return t.Format("January 2006")
}
