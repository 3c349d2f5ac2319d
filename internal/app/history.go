package app

import (
	"context"
	"fmt"

	"github.com/evanschultz/pdwatch/internal/domain"
)

// DefaultTrendMonths is the number of bulletins compared when none is requested.
const DefaultTrendMonths = 6

// TrendInput holds input values for trend operations.
type TrendInput struct {
	Family    domain.Family
	Category  string
	Country   string
	Dimension domain.Dimension
	Months    int
}

// BulletinTrend compares one combination across the most recent stored bulletins.
func (s *Service) BulletinTrend(ctx context.Context, in TrendInput) (domain.HistoricalComparison, error) {
	if in.Months <= 0 {
		in.Months = DefaultTrendMonths
	}
	if in.Dimension == "" {
		in.Dimension = domain.FinalAction
	}
	records, err := s.repo.ListBulletins(ctx, in.Months)
	if err != nil {
		return domain.HistoricalComparison{}, fmt.Errorf("list bulletins: %w", err)
	}
	if len(records) == 0 {
		return domain.HistoricalComparison{}, ErrNoBulletin
	}
	snaps := make([]domain.DatedSnapshot, 0, len(records))
	for _, record := range records {
		snap, err := snapshotOf(record)
		if err != nil {
			s.logger.Warn("skipping unreadable stored bulletin", "id", record.ID, "err", err)
			continue
		}
		snaps = append(snaps, domain.DatedSnapshot{BulletinMonth: record.BulletinMonth, Snapshot: snap})
	}
	return domain.CompareHistory(snaps, domain.HistoryQuery{
		Family:    in.Family,
		Category:  in.Category,
		Country:   in.Country,
		Dimension: in.Dimension,
	})
}
