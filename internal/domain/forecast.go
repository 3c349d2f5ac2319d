package domain

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// ForecastPoint is one predicted monthly cutoff.
type ForecastPoint struct {
	MonthStart      time.Time
	Ordinal         int
	PredictedCutoff time.Time
}

// ForecastSeries is ordered ascending by MonthStart with one point per month.
type ForecastSeries []ForecastPoint

// Last returns the final point.
func (s ForecastSeries) Last() (ForecastPoint, bool) {
	if len(s) == 0 {
		return ForecastPoint{}, false
	}
	return s[len(s)-1], true
}

// FirstReaching returns the first point whose ordinal is at least ordinal.
func (s ForecastSeries) FirstReaching(ordinal int) (ForecastPoint, bool) {
	for _, p := range s {
		if p.Ordinal >= ordinal {
			return p, true
		}
	}
	return ForecastPoint{}, false
}

// AverageMonthlyAdvance estimates the trailing monthly cutoff advance in days, clamped
// to the policy bounds. Non-positive and outlier deltas are discarded.
func (s ForecastSeries) AverageMonthlyAdvance(policy ForecastPolicy) float64 {
	window := s
	if policy.TrendWindow > 0 && len(window) > policy.TrendWindow {
		window = window[len(window)-policy.TrendWindow:]
	}
	total, n := 0, 0
	for i := 1; i < len(window); i++ {
		delta := window[i].Ordinal - window[i-1].Ordinal
		if delta <= 0 || delta >= policy.OutlierDeltaDays {
			continue
		}
		total += delta
		n++
	}
	avg := float64(policy.DefaultAdvanceDays)
	if n > 0 {
		avg = float64(total) / float64(n)
	}
	return min(max(avg, float64(policy.MinAdvanceDays)), float64(policy.MaxAdvanceDays))
}

// ForecastEntry is one raw month of a forecast document.
type ForecastEntry struct {
	CutoffDate string `json:"cutoff_date"`
	Ordinal    int    `json:"ordinal"`
}

// ForecastDocument maps category to month key (YYYY-MM) to entry.
type ForecastDocument map[string]map[string]ForecastEntry

// DecodeForecastDocument decodes a forecast document, unwrapping a record envelope.
func DecodeForecastDocument(data []byte) (ForecastDocument, error) {
	payload, err := unwrapRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForecast, err)
	}
	var doc ForecastDocument
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidForecast, err)
	}
	return doc, nil
}

// ForecastSet holds the series of every category, keyed by folded label.
type ForecastSet struct {
	series map[string]ForecastSeries
}

// NewForecastSet builds series from doc. Entries with an unparseable month, or with
// neither a valid date nor a positive ordinal, are skipped.
func NewForecastSet(doc ForecastDocument) ForecastSet {
	set := ForecastSet{series: map[string]ForecastSeries{}}
	for category, months := range doc {
		series := make(ForecastSeries, 0, len(months))
		for monthKey, entry := range months {
			month, err := time.Parse(MonthLayout, strings.TrimSpace(monthKey))
			if err != nil {
				continue
			}
			point, ok := forecastPoint(MonthStart(month), entry)
			if !ok {
				continue
			}
			series = append(series, point)
		}
		slices.SortFunc(series, func(a, b ForecastPoint) int {
			return a.MonthStart.Compare(b.MonthStart)
		})
		set.series[labelKey(category)] = series
	}
	return set
}

func forecastPoint(month time.Time, entry ForecastEntry) (ForecastPoint, bool) {
	date, err := time.Parse(DateLayout, strings.TrimSpace(entry.CutoffDate))
	switch {
	case err == nil && entry.Ordinal > 0:
		return ForecastPoint{MonthStart: month, Ordinal: entry.Ordinal, PredictedCutoff: Day(date)}, true
	case err == nil:
		return ForecastPoint{MonthStart: month, Ordinal: Ordinal(date), PredictedCutoff: Day(date)}, true
	case entry.Ordinal > 0:
		return ForecastPoint{MonthStart: month, Ordinal: entry.Ordinal, PredictedCutoff: FromOrdinal(entry.Ordinal)}, true
	default:
		return ForecastPoint{}, false
	}
}

// Series returns the series for a category, matching its label first then its
// internal bulletin key. The result is empty when forecasting is unsupported.
func (f ForecastSet) Series(category Category) ForecastSeries {
	if s, ok := f.series[labelKey(category.Label)]; ok {
		return s
	}
	return f.series[labelKey(category.InternalKey)]
}

// Categories returns the folded category keys that carry at least one point.
func (f ForecastSet) Categories() []string {
	out := make([]string, 0, len(f.series))
	for k, s := range f.series {
		if len(s) > 0 {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// Len returns the number of categories in the set.
func (f ForecastSet) Len() int { return len(f.series) }
