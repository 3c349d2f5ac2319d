package domain

import (
	"fmt"
	"strings"
	"time"
)

// CutoffKind tags the active variant of a CutoffValue.
type CutoffKind uint8

// CutoffKind values. The zero kind marks an unset value.
const (
	CutoffCurrent CutoffKind = iota + 1
	CutoffUnavailable
	CutoffDate
)

// String returns the kind name.
func (k CutoffKind) String() string {
	switch k {
	case CutoffCurrent:
		return "current"
	case CutoffUnavailable:
		return "unavailable"
	case CutoffDate:
		return "date"
	default:
		return "unset"
	}
}

// CutoffValue is a bulletin cell: Current, Unavailable, or a calendar date.
type CutoffValue struct {
	kind CutoffKind
	date time.Time
}

// Current returns the "C" cutoff value.
func Current() CutoffValue { return CutoffValue{kind: CutoffCurrent} }

// Unavailable returns the "U" cutoff value.
func Unavailable() CutoffValue { return CutoffValue{kind: CutoffUnavailable} }

// CutoffOn returns a dated cutoff value.
func CutoffOn(date time.Time) CutoffValue {
	return CutoffValue{kind: CutoffDate, date: Day(date)}
}

// Kind returns the active tag.
func (v CutoffValue) Kind() CutoffKind { return v.kind }

// Date returns the cutoff date when the value is dated.
func (v CutoffValue) Date() (time.Time, bool) {
	if v.kind != CutoffDate {
		return time.Time{}, false
	}
	return v.date, true
}

// IsZero reports whether the value was never set.
func (v CutoffValue) IsZero() bool { return v.kind == 0 }

// String renders the value the way bulletins print it.
func (v CutoffValue) String() string {
	switch v.kind {
	case CutoffCurrent:
		return "C"
	case CutoffUnavailable:
		return "U"
	case CutoffDate:
		return strings.ToUpper(v.date.Format("02Jan06"))
	default:
		return ""
	}
}

// Display renders the value for people.
func (v CutoffValue) Display() string {
	switch v.kind {
	case CutoffCurrent:
		return "Current"
	case CutoffUnavailable:
		return "Unavailable"
	case CutoffDate:
		return FormatDay(v.date)
	default:
		return ""
	}
}

// ParseCutoff parses a raw bulletin cell such as "C", "u" or "08FEB23".
func ParseCutoff(raw string) (CutoffValue, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(raw))
	switch trimmed {
	case "C":
		return Current(), nil
	case "U":
		return Unavailable(), nil
	}
	if len(trimmed) != len("02JAN06") {
		return CutoffValue{}, fmt.Errorf("%w: %q", ErrMalformedCutoff, raw)
	}
	date, err := time.Parse("02Jan06", trimmed)
	if err != nil {
		return CutoffValue{}, fmt.Errorf("%w: %q", ErrMalformedCutoff, raw)
	}
	return CutoffOn(date), nil
}
