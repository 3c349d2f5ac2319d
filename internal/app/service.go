package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/evanschultz/pdwatch/internal/domain"
)

// DefaultRefreshInterval is how long a loaded snapshot is reused when none is configured.
const DefaultRefreshInterval = 15 * time.Minute

// ServiceConfig holds configuration for service.
type ServiceConfig struct {
	Policy          domain.ForecastPolicy
	RefreshInterval time.Duration
	Logger          Logger
}

// IDGenerator returns unique identifiers for new records.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// engineState is the immutable input set shared by concurrent checks.
type engineState struct {
	bulletin  BulletinRecord
	snapshot  domain.BulletinSnapshot
	forecasts map[domain.Family]domain.ForecastSet
	permDays  int
	loadedAt  time.Time
}

// Service composes storage, the remote source and the evaluation engine.
type Service struct {
	repo            Repository
	source          Source
	idGen           IDGenerator
	clock           Clock
	logger          Logger
	forecaster      domain.Forecaster
	refreshInterval time.Duration

	mu    sync.RWMutex
	state *engineState
}

// NewService constructs a new value for this package. source may be nil when only
// imported documents are used.
func NewService(repo Repository, source Source, idGen IDGenerator, clock Clock, cfg ServiceConfig) (*Service, error) {
	if repo == nil {
		return nil, errors.New("repository is required")
	}
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = nopLogger{}
	}
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	if cfg.Policy == (domain.ForecastPolicy{}) {
		cfg.Policy = domain.DefaultForecastPolicy()
	}
	forecaster, err := domain.NewForecaster(cfg.Policy)
	if err != nil {
		return nil, err
	}
	return &Service{
		repo:            repo,
		source:          source,
		idGen:           idGen,
		clock:           clock,
		logger:          cfg.Logger,
		forecaster:      forecaster,
		refreshInterval: cfg.RefreshInterval,
	}, nil
}

// Policy returns the forecast policy in use.
func (s *Service) Policy() domain.ForecastPolicy {
	return s.forecaster.Policy()
}

// Catalog returns the selectable families, categories and countries.
func (s *Service) Catalog() domain.Catalog {
	return domain.NewCatalog()
}

// Invalidate drops the cached snapshot so the next read reloads from storage.
func (s *Service) Invalidate() {
	s.mu.Lock()
	s.state = nil
	s.mu.Unlock()
}

// current returns the cached engine state, reloading it once the refresh interval elapsed.
func (s *Service) current(ctx context.Context) (*engineState, error) {
	now := s.clock()
	s.mu.RLock()
	st := s.state
	s.mu.RUnlock()
	if st != nil && now.Sub(st.loadedAt) < s.refreshInterval {
		return st, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != nil && now.Sub(s.state.loadedAt) < s.refreshInterval {
		return s.state, nil
	}
	loaded, err := s.load(ctx, now)
	if err != nil {
		return nil, err
	}
	s.state = loaded
	s.logger.Debug("engine state loaded", "bulletin_month", loaded.bulletin.BulletinMonth.Format(domain.MonthLayout), "perm_days", loaded.permDays)
	return loaded, nil
}

func (s *Service) load(ctx context.Context, now time.Time) (*engineState, error) {
	record, err := s.repo.LatestBulletin(ctx)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNoBulletin
		}
		return nil, fmt.Errorf("load bulletin: %w", err)
	}
	snap, err := snapshotOf(record)
	if err != nil {
		return nil, err
	}

	forecasts := make(map[domain.Family]domain.ForecastSet, len(domain.Families))
	for _, family := range domain.Families {
		fr, err := s.repo.LatestForecast(ctx, family)
		switch {
		case errors.Is(err, ErrNotFound):
			forecasts[family] = domain.NewForecastSet(nil)
			continue
		case err != nil:
			return nil, fmt.Errorf("load %s forecast: %w", family, err)
		}
		doc, err := domain.DecodeForecastDocument(fr.Document)
		if err != nil {
			s.logger.Warn("stored forecast is unreadable; forecasting disabled for family", "family", family, "err", err)
			forecasts[family] = domain.NewForecastSet(nil)
			continue
		}
		forecasts[family] = domain.NewForecastSet(doc)
	}

	permDays := 0
	perm, err := s.repo.LatestPermRecord(ctx)
	switch {
	case err == nil:
		permDays = perm.CalendarDays
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("load perm figure: %w", err)
	}

	return &engineState{
		bulletin:  record,
		snapshot:  snap,
		forecasts: forecasts,
		permDays:  permDays,
		loadedAt:  now,
	}, nil
}

func snapshotOf(record BulletinRecord) (domain.BulletinSnapshot, error) {
	doc, err := domain.DecodeBulletinDocument(record.Document)
	if err != nil {
		return domain.BulletinSnapshot{}, fmt.Errorf("decode bulletin %s: %w", record.ID, err)
	}
	snap, err := domain.NewSnapshot(doc)
	if err != nil {
		return domain.BulletinSnapshot{}, fmt.Errorf("build snapshot %s: %w", record.ID, err)
	}
	return snap, nil
}

// Status summarizes what the service currently has loaded.
type Status struct {
	BulletinMonth      time.Time
	BulletinFetchedAt  time.Time
	BulletinSource     string
	ForecastCategories map[domain.Family]int
	PermDays           int
	LoadedAt           time.Time
}

// Status reports the loaded bulletin, forecasts and PERM figure.
func (s *Service) Status(ctx context.Context) (Status, error) {
	st, err := s.current(ctx)
	if err != nil {
		return Status{}, err
	}
	counts := make(map[domain.Family]int, len(st.forecasts))
	for family, set := range st.forecasts {
		counts[family] = len(set.Categories())
	}
	return Status{
		BulletinMonth:      st.bulletin.BulletinMonth,
		BulletinFetchedAt:  st.bulletin.FetchedAt,
		BulletinSource:     st.bulletin.Source,
		ForecastCategories: counts,
		PermDays:           st.permDays,
		LoadedAt:           st.loadedAt,
	}, nil
}

// BulletinView is one table of the loaded bulletin.
type BulletinView struct {
	BulletinMonth time.Time
	Dimension     domain.Dimension
	Family        domain.Family
	Rows          []domain.Cell
}

// Bulletin returns the rows of one table of the loaded bulletin.
func (s *Service) Bulletin(ctx context.Context, dim domain.Dimension, family domain.Family) (BulletinView, error) {
	st, err := s.current(ctx)
	if err != nil {
		return BulletinView{}, err
	}
	return BulletinView{
		BulletinMonth: st.bulletin.BulletinMonth,
		Dimension:     dim,
		Family:        family,
		Rows:          st.snapshot.Rows(dim, family),
	}, nil
}
