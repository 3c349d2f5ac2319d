package app

import (
	"context"
	"runtime"
	"time"

	"github.com/evanschultz/pdwatch/internal/domain"
	"golang.org/x/sync/errgroup"
)

// CheckInput holds input values for check operations.
type CheckInput struct {
	Family       domain.Family
	Category     string
	Country      string
	PriorityDate time.Time
	// PermDays overrides the stored PERM figure when positive.
	PermDays int
}

// Report is the evaluation and projected timeline for one query.
type Report struct {
	Evaluation        domain.Evaluation
	Timeline          domain.TimelineResult
	BulletinMonth     time.Time
	PermDays          int
	ForecastAvailable bool
	CheckedAt         time.Time
}

// CheckPriorityDate evaluates a priority date against the loaded bulletin and
// projects its timeline.
func (s *Service) CheckPriorityDate(ctx context.Context, in CheckInput) (Report, error) {
	now := s.clock()
	if err := domain.ValidateInput(evaluateInput(in), now); err != nil {
		return Report{}, err
	}
	st, err := s.current(ctx)
	if err != nil {
		return Report{}, err
	}
	return s.check(st, in, now)
}

// CheckMany evaluates several queries in parallel against one snapshot. Reports keep
// the order of inputs; the first error aborts the batch.
func (s *Service) CheckMany(ctx context.Context, inputs []CheckInput) ([]Report, error) {
	now := s.clock()
	for _, in := range inputs {
		if err := domain.ValidateInput(evaluateInput(in), now); err != nil {
			return nil, err
		}
	}
	st, err := s.current(ctx)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, len(inputs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, in := range inputs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			report, err := s.check(st, in, now)
			if err != nil {
				return err
			}
			reports[i] = report
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (s *Service) check(st *engineState, in CheckInput, now time.Time) (Report, error) {
	eval, err := domain.Evaluate(st.snapshot, evaluateInput(in), now)
	if err != nil {
		return Report{}, err
	}
	permDays := st.permDays
	if in.PermDays > 0 {
		permDays = in.PermDays
	}
	if eval.Family != domain.EmploymentBased {
		permDays = 0
	}
	series := st.forecasts[eval.Family].Series(eval.Category)
	timeline := s.forecaster.Project(domain.ProjectInput{
		Evaluation:         eval,
		Series:             series,
		PermProcessingDays: permDays,
	}, now)
	return Report{
		Evaluation:        eval,
		Timeline:          timeline,
		BulletinMonth:     st.bulletin.BulletinMonth,
		PermDays:          permDays,
		ForecastAvailable: len(series) > 0,
		CheckedAt:         now,
	}, nil
}

func evaluateInput(in CheckInput) domain.EvaluateInput {
	return domain.EvaluateInput{
		Family:       in.Family,
		Category:     in.Category,
		Country:      in.Country,
		PriorityDate: in.PriorityDate,
	}
}
