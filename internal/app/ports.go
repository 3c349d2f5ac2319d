package app

import (
	"context"
	"time"

	"github.com/evanschultz/pdwatch/internal/domain"
)

// BulletinRecord is one stored bulletin document. At most one record is kept per bulletin month.
type BulletinRecord struct {
	ID            string
	BulletinMonth time.Time
	Source        string
	Document      []byte
	FetchedAt     time.Time
}

// ForecastRecord is one stored forecast document for a visa family.
type ForecastRecord struct {
	ID         string
	Family     domain.Family
	Document   []byte
	ImportedAt time.Time
}

// PermRecord is one recorded PERM processing figure.
type PermRecord struct {
	ID           string
	CalendarDays int
	Source       string
	RecordedAt   time.Time
}

// Repository persists fetched and imported documents.
type Repository interface {
	SaveBulletin(context.Context, BulletinRecord) error
	LatestBulletin(context.Context) (BulletinRecord, error)
	ListBulletins(context.Context, int) ([]BulletinRecord, error)

	SaveForecast(context.Context, ForecastRecord) error
	LatestForecast(context.Context, domain.Family) (ForecastRecord, error)

	SavePermRecord(context.Context, PermRecord) error
	LatestPermRecord(context.Context) (PermRecord, error)
}

// Source fetches remote documents.
type Source interface {
	FetchBulletin(context.Context) ([]byte, error)
	FetchPermDocument(context.Context) ([]byte, error)
}

// Logger receives service events. *log.Logger from charmbracelet/log satisfies it.
type Logger interface {
	Debug(msg any, keyvals ...any)
	Info(msg any, keyvals ...any)
	Warn(msg any, keyvals ...any)
	Error(msg any, keyvals ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(any, ...any) {}
func (nopLogger) Info(any, ...any)  {}
func (nopLogger) Warn(any, ...any)  {}
func (nopLogger) Error(any, ...any) {}
