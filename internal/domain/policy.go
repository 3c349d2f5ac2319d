package domain

import "fmt"

// ForecastPolicy holds every constant the timeline forecaster applies.
type ForecastPolicy struct {
	VeryOldYears                  float64
	VeryOldPermMonths             int
	VeryOldFilingMonthsEmployment int
	VeryOldFilingMonthsFamily     int
	FilingToFinalActionMonths     int
	FinalActionToCardMonths       int
	ConservatismBufferMonths      int
	TrendWindow                   int
	DefaultAdvanceDays            int
	MinAdvanceDays                int
	MaxAdvanceDays                int
	OutlierDeltaDays              int
}

// DefaultForecastPolicy returns the published policy constants.
func DefaultForecastPolicy() ForecastPolicy {
	return ForecastPolicy{
		VeryOldYears:                  4,
		VeryOldPermMonths:             18,
		VeryOldFilingMonthsEmployment: 24,
		VeryOldFilingMonthsFamily:     12,
		FilingToFinalActionMonths:     9,
		FinalActionToCardMonths:       4,
		ConservatismBufferMonths:      7,
		TrendWindow:                   12,
		DefaultAdvanceDays:            30,
		MinAdvanceDays:                15,
		MaxAdvanceDays:                180,
		OutlierDeltaDays:              730,
	}
}

// Validate checks that every constant is positive and the advance bounds are ordered.
func (p ForecastPolicy) Validate() error {
	positive := []struct {
		name  string
		value int
	}{
		{"very_old_perm_months", p.VeryOldPermMonths},
		{"very_old_filing_months_employment", p.VeryOldFilingMonthsEmployment},
		{"very_old_filing_months_family", p.VeryOldFilingMonthsFamily},
		{"filing_to_final_action_months", p.FilingToFinalActionMonths},
		{"final_action_to_card_months", p.FinalActionToCardMonths},
		{"conservatism_buffer_months", p.ConservatismBufferMonths},
		{"trend_window", p.TrendWindow},
		{"default_advance_days", p.DefaultAdvanceDays},
		{"min_advance_days", p.MinAdvanceDays},
		{"max_advance_days", p.MaxAdvanceDays},
		{"outlier_delta_days", p.OutlierDeltaDays},
	}
	if p.VeryOldYears <= 0 {
		return fmt.Errorf("%w: very_old_years must be > 0", ErrInvalidPolicy)
	}
	for _, field := range positive {
		if field.value <= 0 {
			return fmt.Errorf("%w: %s must be > 0", ErrInvalidPolicy, field.name)
		}
	}
	if p.MinAdvanceDays > p.DefaultAdvanceDays || p.DefaultAdvanceDays > p.MaxAdvanceDays {
		return fmt.Errorf("%w: require min_advance_days <= default_advance_days <= max_advance_days", ErrInvalidPolicy)
	}
	return nil
}
