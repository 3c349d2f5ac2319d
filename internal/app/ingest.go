package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/pdwatch/internal/domain"
)

// RefreshResult reports what RefreshFromSource stored.
type RefreshResult struct {
	Bulletin BulletinRecord
	PermDays int
	// PermErr is set when the bulletin refreshed but the PERM document did not.
	PermErr error
}

// RefreshFromSource fetches the bulletin and PERM documents, stores them and drops
// the cached snapshot. A PERM failure does not fail the refresh.
func (s *Service) RefreshFromSource(ctx context.Context) (RefreshResult, error) {
	if s.source == nil {
		return RefreshResult{}, ErrSourceUnavailable
	}
	data, err := s.source.FetchBulletin(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}
	record, err := s.ImportBulletin(ctx, data, "", "remote")
	if err != nil {
		return RefreshResult{}, err
	}
	result := RefreshResult{Bulletin: record}

	if days, err := s.refreshPerm(ctx); err == nil {
		result.PermDays = days
	} else {
		result.PermErr = err
		s.logger.Warn("perm refresh failed; keeping previous figure", "err", err)
	}
	s.logger.Info("bulletin refreshed", "bulletin_month", record.BulletinMonth.Format(domain.MonthLayout), "perm_days", result.PermDays)
	return result, nil
}

func (s *Service) refreshPerm(ctx context.Context) (int, error) {
	data, err := s.source.FetchPermDocument(ctx)
	if err != nil {
		return 0, err
	}
	days, err := domain.DecodePermDays(data)
	if err != nil {
		return 0, err
	}
	if err := s.SetPermDays(ctx, days, "remote"); err != nil {
		return 0, err
	}
	return days, nil
}

// ImportBulletin validates and stores a bulletin document. month overrides the
// bulletin month carried by the document; when both are empty the current month is used.
func (s *Service) ImportBulletin(ctx context.Context, data []byte, month, source string) (BulletinRecord, error) {
	doc, err := domain.DecodeBulletinDocument(data)
	if err != nil {
		return BulletinRecord{}, err
	}
	if _, err := domain.NewSnapshot(doc); err != nil {
		return BulletinRecord{}, err
	}
	now := s.clock()
	label := strings.TrimSpace(month)
	if label == "" {
		label = doc.BulletinMonth
	}
	bulletinMonth := domain.MonthStart(now)
	if strings.TrimSpace(label) != "" {
		bulletinMonth, err = ParseBulletinMonth(label)
		if err != nil {
			return BulletinRecord{}, err
		}
	}
	if strings.TrimSpace(source) == "" {
		source = "import"
	}
	record := BulletinRecord{
		ID:            s.idGen(),
		BulletinMonth: bulletinMonth,
		Source:        source,
		Document:      data,
		FetchedAt:     now.UTC(),
	}
	if err := s.repo.SaveBulletin(ctx, record); err != nil {
		return BulletinRecord{}, fmt.Errorf("save bulletin: %w", err)
	}
	s.Invalidate()
	return record, nil
}

// ParseBulletinMonth accepts "2026-10" or "October 2026".
func ParseBulletinMonth(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{domain.MonthLayout, "January 2006", "Jan 2006"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return domain.MonthStart(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: bulletin month %q", ErrInvalidInput, raw)
}

// ImportForecast validates and stores a forecast document for a family and returns
// the number of categories with at least one usable point.
func (s *Service) ImportForecast(ctx context.Context, family domain.Family, data []byte) (int, error) {
	switch family {
	case domain.FamilyBased, domain.EmploymentBased:
	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrInvalidFamily, family)
	}
	doc, err := domain.DecodeForecastDocument(data)
	if err != nil {
		return 0, err
	}
	usable := len(domain.NewForecastSet(doc).Categories())
	if usable == 0 {
		return 0, fmt.Errorf("%w: no usable forecast points", domain.ErrInvalidForecast)
	}
	record := ForecastRecord{
		ID:         s.idGen(),
		Family:     family,
		Document:   data,
		ImportedAt: s.clock().UTC(),
	}
	if err := s.repo.SaveForecast(ctx, record); err != nil {
		return 0, fmt.Errorf("save forecast: %w", err)
	}
	s.Invalidate()
	s.logger.Info("forecast imported", "family", family, "categories", usable)
	return usable, nil
}

// SetPermDays records the average PERM processing time.
func (s *Service) SetPermDays(ctx context.Context, days int, source string) error {
	if days <= 0 {
		return fmt.Errorf("%w: perm days must be > 0", ErrInvalidInput)
	}
	if strings.TrimSpace(source) == "" {
		source = "manual"
	}
	err := s.repo.SavePermRecord(ctx, PermRecord{
		ID:           s.idGen(),
		CalendarDays: days,
		Source:       source,
		RecordedAt:   s.clock().UTC(),
	})
	if err != nil {
		return fmt.Errorf("save perm figure: %w", err)
	}
	s.Invalidate()
	return nil
}
