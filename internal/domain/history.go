package domain

import (
	"slices"
	"time"
)

// Trend summarizes cutoff movement across several bulletins.
type Trend string

// Trend values.
const (
	TrendAdvancing     Trend = "advancing"
	TrendRetrogressing Trend = "retrogressing"
	TrendUnchanged     Trend = "unchanged"
	TrendMixed         Trend = "mixed"
)

// DatedSnapshot pairs a snapshot with the bulletin month it was published for.
type DatedSnapshot struct {
	BulletinMonth time.Time
	Snapshot      BulletinSnapshot
}

// HistoricalPoint is the cutoff of one combination in one bulletin.
type HistoricalPoint struct {
	BulletinMonth time.Time
	Present       bool
	Raw           string
	Value         CutoffValue
	Malformed     bool
}

// HistoryQuery selects the combination to compare.
type HistoryQuery struct {
	Family    Family
	Category  string
	Country   string
	Dimension Dimension
}

// HistoricalComparison is the movement of one combination across bulletins.
type HistoricalComparison struct {
	Family         Family
	Category       Category
	CountryKey     string
	Dimension      Dimension
	Points         []HistoricalPoint
	Trend          Trend
	MonthsMovement int
}

// CompareHistory extracts the combination from every snapshot, ordered by bulletin
// month, and classifies the movement between the first and last dated cutoffs.
func CompareHistory(snaps []DatedSnapshot, q HistoryQuery) (HistoricalComparison, error) {
	switch q.Family {
	case FamilyBased, EmploymentBased:
	default:
		return HistoricalComparison{}, ErrInvalidFamily
	}
	switch q.Dimension {
	case FinalAction, Filing:
	default:
		return HistoricalComparison{}, ErrInvalidDimension
	}
	category, err := ResolveCategory(q.Family, q.Category)
	if err != nil {
		return HistoricalComparison{}, err
	}
	ordered := slices.Clone(snaps)
	slices.SortStableFunc(ordered, func(a, b DatedSnapshot) int {
		return a.BulletinMonth.Compare(b.BulletinMonth)
	})

	out := HistoricalComparison{
		Family:     q.Family,
		Category:   category,
		CountryKey: CountryKey(q.Family, q.Country),
		Dimension:  q.Dimension,
		Points:     make([]HistoricalPoint, 0, len(ordered)),
	}
	for _, snap := range ordered {
		point := HistoricalPoint{BulletinMonth: MonthStart(snap.BulletinMonth)}
		if cell, ok := snap.Snapshot.Lookup(q.Dimension, q.Family, category.InternalKey, q.Country); ok {
			point.Present = true
			point.Raw = cell.Raw
			point.Value = cell.Value
			point.Malformed = cell.Malformed()
		}
		out.Points = append(out.Points, point)
	}
	out.Trend, out.MonthsMovement = classifyTrend(out.Points)
	return out, nil
}

func classifyTrend(points []HistoricalPoint) (Trend, int) {
	dates := make([]time.Time, 0, len(points))
	for _, p := range points {
		if d, ok := p.Value.Date(); ok && !p.Malformed {
			dates = append(dates, d)
		}
	}
	if len(dates) < 2 {
		return TrendUnchanged, 0
	}
	moved := false
	for i := 1; i < len(dates); i++ {
		if !dates[i].Equal(dates[i-1]) {
			moved = true
			break
		}
	}
	first, last := dates[0], dates[len(dates)-1]
	net := WholeMonthsBetween(first, last)
	switch {
	case last.After(first):
		return TrendAdvancing, net
	case last.Before(first):
		return TrendRetrogressing, net
	case moved:
		return TrendMixed, 0
	default:
		return TrendUnchanged, 0
	}
}
