package domain

import (
	"fmt"
	"strings"
	"time"
)

// Outcome tags how a dimension lookup resolved.
type Outcome string

// Outcome values.
const (
	OutcomeDate        Outcome = "date"
	OutcomeCurrent     Outcome = "current"
	OutcomeUnavailable Outcome = "unavailable"
	OutcomeNoData      Outcome = "no_data"
	OutcomeMalformed   Outcome = "malformed"
)

// EvaluationResult is the verdict text for one dimension.
type EvaluationResult struct {
	CutoffText    string
	IsCurrent     bool
	FormattedDate *time.Time
}

// Verdict is the tagged outcome for one dimension. Result is nil for OutcomeNoData.
type Verdict struct {
	Dimension Dimension
	Outcome   Outcome
	Result    *EvaluationResult
	Raw       string
}

// NoData reports whether the snapshot had no entry for the combination.
func (v Verdict) NoData() bool { return v.Outcome == OutcomeNoData }

// IsCurrent reports whether the dimension is actionable now.
func (v Verdict) IsCurrent() bool { return v.Result != nil && v.Result.IsCurrent }

// Text returns the cutoff text or the no-data marker.
func (v Verdict) Text() string {
	if v.Result == nil {
		return "N/A (no data for this category and country)"
	}
	return v.Result.CutoffText
}

// EvaluateInput carries one priority date query.
type EvaluateInput struct {
	Family       Family
	Category     string
	Country      string
	PriorityDate time.Time
}

// Evaluation is the verdict pair for one query.
type Evaluation struct {
	Family       Family
	Category     Category
	CountryKey   string
	PriorityDate time.Time
	FinalAction  Verdict
	Filing       Verdict
}

// Verdict returns the verdict for one dimension.
func (e Evaluation) Verdict(dim Dimension) Verdict {
	if dim == Filing {
		return e.Filing
	}
	return e.FinalAction
}

// ValidateInput checks caller-correctable input before any lookup.
func ValidateInput(in EvaluateInput, today time.Time) error {
	switch in.Family {
	case FamilyBased, EmploymentBased:
	case "":
		return fmt.Errorf("%w: family", ErrMissingSelection)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidFamily, in.Family)
	}
	if strings.TrimSpace(in.Category) == "" {
		return fmt.Errorf("%w: category", ErrMissingSelection)
	}
	if strings.TrimSpace(in.Country) == "" {
		return fmt.Errorf("%w: country", ErrMissingSelection)
	}
	if in.PriorityDate.IsZero() {
		return fmt.Errorf("%w: priority date", ErrMissingSelection)
	}
	if Day(in.PriorityDate).After(Day(today)) {
		return fmt.Errorf("%w: %s", ErrFutureDate, Day(in.PriorityDate).Format(DateLayout))
	}
	return nil
}

// Evaluate classifies a priority date against both dimensions of snap.
func Evaluate(snap BulletinSnapshot, in EvaluateInput, today time.Time) (Evaluation, error) {
	if err := ValidateInput(in, today); err != nil {
		return Evaluation{}, err
	}
	category, err := ResolveCategory(in.Family, in.Category)
	if err != nil {
		return Evaluation{}, err
	}
	pd := Day(in.PriorityDate)
	out := Evaluation{
		Family:       in.Family,
		Category:     category,
		CountryKey:   CountryKey(in.Family, in.Country),
		PriorityDate: pd,
	}
	out.FinalAction = evaluateDimension(snap, FinalAction, category, in.Country, pd)
	out.Filing = evaluateDimension(snap, Filing, category, in.Country, pd)
	return out, nil
}

func evaluateDimension(snap BulletinSnapshot, dim Dimension, category Category, country string, pd time.Time) Verdict {
	cell, ok := snap.Lookup(dim, category.Family, category.InternalKey, country)
	if !ok {
		return Verdict{Dimension: dim, Outcome: OutcomeNoData}
	}
	if cell.Malformed() {
		return Verdict{
			Dimension: dim,
			Outcome:   OutcomeMalformed,
			Raw:       cell.Raw,
			Result:    &EvaluationResult{CutoffText: fmt.Sprintf("Invalid date format in source data (%s)", cell.Raw)},
		}
	}
	switch cell.Value.Kind() {
	case CutoffCurrent:
		return Verdict{Dimension: dim, Outcome: OutcomeCurrent, Raw: cell.Raw, Result: &EvaluationResult{CutoffText: "Current", IsCurrent: true}}
	case CutoffUnavailable:
		return Verdict{Dimension: dim, Outcome: OutcomeUnavailable, Raw: cell.Raw, Result: &EvaluationResult{CutoffText: "Unavailable"}}
	}
	cutoff, _ := cell.Value.Date()
	return Verdict{
		Dimension: dim,
		Outcome:   OutcomeDate,
		Raw:       cell.Raw,
		Result: &EvaluationResult{
			CutoffText:    FormatDay(cutoff),
			IsCurrent:     !pd.After(cutoff),
			FormattedDate: &cutoff,
		},
	}
}
