package domain

import (
	"fmt"
	"math"
	"time"
)

// StageKind identifies a timeline milestone.
type StageKind string

// StageKind values in timeline order.
const (
	StagePriorityDate StageKind = "priority_date"
	StagePermApproval StageKind = "perm_approval"
	StageFilingWindow StageKind = "filing_window"
	StageFinalAction  StageKind = "final_action"
	StageGreenCard    StageKind = "green_card"
)

// Label returns the display label for the stage.
func (k StageKind) Label() string {
	switch k {
	case StagePriorityDate:
		return "Priority Date"
	case StagePermApproval:
		return "PERM Approval"
	case StageFilingWindow:
		return "Filing Window"
	case StageFinalAction:
		return "Final Action"
	case StageGreenCard:
		return "Green Card in Hand"
	default:
		return string(k)
	}
}

// StageState is the lifecycle state of a milestone.
type StageState string

// StageState values.
const (
	StateCompleted   StageState = "completed"
	StateCurrent     StageState = "current"
	StateUpcoming    StageState = "upcoming"
	StateUnavailable StageState = "unavailable"
)

// Stage is one milestone of a timeline.
type Stage struct {
	Kind    StageKind
	Label   string
	Date    *time.Time
	Display string
	State   StageState
}

// FilingBasis records which rule produced the filing window.
type FilingBasis string

// FilingBasis values.
const (
	BasisCurrent       FilingBasis = "current"
	BasisForecastRange FilingBasis = "forecast_range"
	BasisExtrapolated  FilingBasis = "extrapolated"
	BasisHistorical    FilingBasis = "historical_estimate"
	BasisNoTrend       FilingBasis = "prediction_unavailable"
	BasisNotApplicable FilingBasis = "not_applicable"
)

// Display messages shared by transports and renderers.
const (
	FilingCurrentEmploymentText = "Dates for Filing: Current (actual filing subject to PERM approval)"
	NoTrendText                 = "Prediction N/A (no positive trend/PD too far)."
	PermUnavailableText         = "PERM processing time unavailable"
)

// TimelineResult is a projected milestone timeline.
type TimelineResult struct {
	Basis                     FilingBasis
	Stages                    []Stage
	Advisory                  string
	Note                      string
	EarliestActionMonth       time.Time
	PermApprovalDate          *time.Time
	FilingMonth               *time.Time
	FinalActionMonth          *time.Time
	GreenCardMonth            *time.Time
	AverageMonthlyAdvanceDays float64
}

// Stage returns the milestone of the given kind.
func (r TimelineResult) Stage(kind StageKind) (Stage, bool) {
	for _, s := range r.Stages {
		if s.Kind == kind {
			return s, true
		}
	}
	return Stage{}, false
}

// ProjectInput carries everything the forecaster reads for one query.
type ProjectInput struct {
	Evaluation Evaluation
	Series     ForecastSeries
	// PermProcessingDays is ignored for family categories and when not positive.
	PermProcessingDays int
}

// Forecaster projects timelines under a fixed policy.
type Forecaster struct {
	policy ForecastPolicy
}

// NewForecaster validates policy and returns a forecaster.
func NewForecaster(policy ForecastPolicy) (Forecaster, error) {
	if err := policy.Validate(); err != nil {
		return Forecaster{}, err
	}
	return Forecaster{policy: policy}, nil
}

// Policy returns the policy in use.
func (f Forecaster) Policy() ForecastPolicy { return f.policy }

// projection is the working state shared by the filing rules.
type projection struct {
	policy   ForecastPolicy
	eval     Evaluation
	series   ForecastSeries
	today    time.Time
	earliest time.Time
	permDate *time.Time
}

// filingOutcome is what a filing rule decided.
type filingOutcome struct {
	basis FilingBasis
	month *time.Time
	note  string
	avg   float64
}

// filingRule returns ok=false when it does not apply.
type filingRule func(p *projection) (filingOutcome, bool)

// filingRules are tried in order; the first that applies wins.
var filingRules = []filingRule{
	filingWhenCurrent,
	filingNotApplicable,
	filingExtrapolated,
	filingWithinForecast,
	filingNoTrend,
}

// Project builds the timeline for one evaluation.
func (f Forecaster) Project(in ProjectInput, today time.Time) TimelineResult {
	today = Day(today)
	if result, ok := f.veryOld(in.Evaluation, today); ok {
		return result
	}

	p := &projection{policy: f.policy, eval: in.Evaluation, series: in.Series, today: today}
	pd := in.Evaluation.PriorityDate
	floor := MonthStart(pd)
	if in.Evaluation.Family == EmploymentBased && in.PermProcessingDays > 0 {
		permDate := AddDays(pd, in.PermProcessingDays)
		p.permDate = &permDate
		floor = MonthStart(permDate)
	}
	p.earliest = MaxMonth(MonthStart(today), floor)

	var filing filingOutcome
	for _, rule := range filingRules {
		if out, ok := rule(p); ok {
			filing = out
			break
		}
	}
	return f.assemble(p, filing)
}

func filingWhenCurrent(p *projection) (filingOutcome, bool) {
	if !p.eval.Filing.IsCurrent() {
		return filingOutcome{}, false
	}
	month := p.earliest
	return filingOutcome{basis: BasisCurrent, month: &month}, true
}

func filingNotApplicable(p *projection) (filingOutcome, bool) {
	var note string
	switch p.eval.Filing.Outcome {
	case OutcomeDate:
		if len(p.series) > 0 {
			return filingOutcome{}, false
		}
		note = "Forecast unavailable for this category."
	case OutcomeUnavailable:
		note = "Forecasting not applicable: dates for filing are unavailable."
	case OutcomeMalformed:
		note = "Forecasting not applicable: invalid date format in source data."
	default:
		note = "Forecasting not applicable: no filing data for this category and country."
	}
	return filingOutcome{basis: BasisNotApplicable, note: note}, true
}

func filingExtrapolated(p *projection) (filingOutcome, bool) {
	last, ok := p.series.Last()
	pdOrdinal := Ordinal(p.eval.PriorityDate)
	if !ok || pdOrdinal <= last.Ordinal {
		return filingOutcome{}, false
	}
	avg := p.series.AverageMonthlyAdvance(p.policy)
	if avg <= 0 {
		return filingOutcome{}, false
	}
	monthsNeeded := int(math.Ceil(float64(pdOrdinal-last.Ordinal) / avg))
	month := MaxMonth(AddMonths(last.MonthStart, 1+monthsNeeded), p.earliest)
	return filingOutcome{basis: BasisExtrapolated, month: &month, avg: avg}, true
}

func filingWithinForecast(p *projection) (filingOutcome, bool) {
	point, ok := p.series.FirstReaching(Ordinal(p.eval.PriorityDate))
	if !ok {
		return filingOutcome{}, false
	}
	month := MaxMonth(AddMonths(point.MonthStart, p.policy.ConservatismBufferMonths), p.earliest)
	return filingOutcome{basis: BasisForecastRange, month: &month, avg: p.series.AverageMonthlyAdvance(p.policy)}, true
}

func filingNoTrend(*projection) (filingOutcome, bool) {
	return filingOutcome{basis: BasisNoTrend, note: NoTrendText}, true
}

func (f Forecaster) assemble(p *projection, filing filingOutcome) TimelineResult {
	eval := p.eval
	result := TimelineResult{
		Basis:                     filing.basis,
		Note:                      filing.note,
		EarliestActionMonth:       p.earliest,
		PermApprovalDate:          p.permDate,
		AverageMonthlyAdvanceDays: filing.avg,
	}
	pd := eval.PriorityDate
	result.Stages = append(result.Stages, Stage{
		Kind: StagePriorityDate, Label: StagePriorityDate.Label(), Date: &pd,
		Display: FormatDay(pd), State: StateCompleted,
	})
	if eval.Family == EmploymentBased {
		perm := Stage{Kind: StagePermApproval, Label: StagePermApproval.Label()}
		if p.permDate != nil {
			perm.Date = p.permDate
			perm.Display = FormatDay(*p.permDate)
			perm.State = dateState(*p.permDate, p.today)
		} else {
			perm.Display = PermUnavailableText
			perm.State = StateUnavailable
		}
		result.Stages = append(result.Stages, perm)
	}

	if filing.month == nil {
		result.Stages = append(result.Stages,
			unavailableStage(StageFilingWindow, filing.note),
			unavailableStage(StageFinalAction, "N/A"),
			unavailableStage(StageGreenCard, "N/A"),
		)
		return result
	}

	filingMonth := *filing.month
	finalAction := AddMonths(filingMonth, f.policy.FilingToFinalActionMonths)
	greenCard := AddMonths(finalAction, f.policy.FinalActionToCardMonths)
	result.FilingMonth = &filingMonth
	result.FinalActionMonth = &finalAction
	result.GreenCardMonth = &greenCard

	filingCurrent := filing.basis == BasisCurrent
	downstreamGate := filingCurrent && eval.FinalAction.IsCurrent()
	result.Stages = append(result.Stages,
		Stage{
			Kind: StageFilingWindow, Label: StageFilingWindow.Label(), Date: &filingMonth,
			Display: filingDisplay(eval.Family, filing.basis, filingMonth, p.today),
			State:   monthState(filingMonth, p.today, filingCurrent),
		},
		Stage{
			Kind: StageFinalAction, Label: StageFinalAction.Label(), Date: &finalAction,
			Display: FormatMonth(finalAction), State: monthState(finalAction, p.today, downstreamGate),
		},
		Stage{
			Kind: StageGreenCard, Label: StageGreenCard.Label(), Date: &greenCard,
			Display: FormatMonth(greenCard), State: monthState(greenCard, p.today, downstreamGate),
		},
	)
	return result
}

func filingDisplay(family Family, basis FilingBasis, month, today time.Time) string {
	if basis != BasisCurrent {
		return FormatMonth(month)
	}
	if !month.Equal(MonthStart(today)) {
		return fmt.Sprintf("Current, earliest %s after PERM approval", FormatMonth(month))
	}
	if family == EmploymentBased {
		return FilingCurrentEmploymentText
	}
	return "Current"
}

func unavailableStage(kind StageKind, display string) Stage {
	return Stage{Kind: kind, Label: kind.Label(), Display: display, State: StateUnavailable}
}

func monthState(month, today time.Time, gate bool) StageState {
	thisMonth := MonthStart(today)
	switch {
	case month.Before(thisMonth):
		return StateCompleted
	case month.Equal(thisMonth) && gate:
		return StateCurrent
	default:
		return StateUpcoming
	}
}

func dateState(date, today time.Time) StageState {
	switch {
	case !date.After(today):
		return StateCompleted
	case MonthStart(date).Equal(MonthStart(today)):
		return StateCurrent
	default:
		return StateUpcoming
	}
}

// veryOld short-circuits priority dates older than the policy threshold with
// historical estimates.
func (f Forecaster) veryOld(eval Evaluation, today time.Time) (TimelineResult, bool) {
	pd := eval.PriorityDate
	years := float64(DaysBetween(pd, today)) / 365
	if years <= f.policy.VeryOldYears {
		return TimelineResult{}, false
	}

	result := TimelineResult{
		Basis: BasisHistorical,
		Advisory: fmt.Sprintf(
			"Your priority date is over %d years old, so these dates are historical estimates. Verify your actual case status with USCIS.",
			int(years),
		),
	}
	result.Stages = append(result.Stages, Stage{
		Kind: StagePriorityDate, Label: StagePriorityDate.Label(), Date: &pd,
		Display: FormatDay(pd), State: StateCompleted,
	})
	filingMonths := f.policy.VeryOldFilingMonthsFamily
	if eval.Family == EmploymentBased {
		filingMonths = f.policy.VeryOldFilingMonthsEmployment
		perm := AddMonths(pd, f.policy.VeryOldPermMonths)
		result.PermApprovalDate = &perm
		result.Stages = append(result.Stages, historicalStage(StagePermApproval, perm, FormatDay(perm)))
	}
	filing := AddMonths(pd, filingMonths)
	finalAction := AddMonths(filing, f.policy.FilingToFinalActionMonths)
	greenCard := AddMonths(finalAction, f.policy.FinalActionToCardMonths)
	result.FilingMonth = &filing
	result.FinalActionMonth = &finalAction
	result.GreenCardMonth = &greenCard
	result.Stages = append(result.Stages,
		historicalStage(StageFilingWindow, filing, FormatMonth(filing)),
		historicalStage(StageFinalAction, finalAction, FormatMonth(finalAction)),
		historicalStage(StageGreenCard, greenCard, FormatMonth(greenCard)),
	)
	return result, true
}

func historicalStage(kind StageKind, date time.Time, display string) Stage {
	return Stage{
		Kind: kind, Label: kind.Label(), Date: &date,
		Display: display + " (historical estimate)", State: StateCompleted,
	}
}
