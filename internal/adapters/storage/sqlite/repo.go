package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/evanschultz/pdwatch/internal/app"
	"github.com/evanschultz/pdwatch/internal/domain"
	_ "modernc.org/sqlite"
)

// driverName defines a package constant value.
const driverName = "sqlite"

// monthKeyLayout stores bulletin months as sortable text.
const monthKeyLayout = "2006-01"

// Repository represents repository data used by this package.
type Repository struct {
	db *sql.DB
}

// Open opens the requested operation.
func Open(path string) (*Repository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create sqlite dir: %w", err)
	}
	db, err := sql.Open(driverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// OpenInMemory opens in memory.
func OpenInMemory() (*Repository, error) {
	db, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open sqlite memory: %w", err)
	}
	db.SetMaxOpenConns(1)
	repo := &Repository{db: db}
	if err := repo.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// Close closes the requested operation.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Ping reports whether the database answers.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate handles migrate.
func (r *Repository) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS bulletins (
			id TEXT PRIMARY KEY,
			bulletin_month TEXT NOT NULL UNIQUE,
			source TEXT NOT NULL DEFAULT 'import',
			document_json TEXT NOT NULL,
			fetched_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS forecasts (
			id TEXT PRIMARY KEY,
			family TEXT NOT NULL,
			document_json TEXT NOT NULL,
			imported_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS perm_records (
			id TEXT PRIMARY KEY,
			calendar_days INTEGER NOT NULL,
			source TEXT NOT NULL DEFAULT 'manual',
			recorded_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_forecasts_family_imported_at ON forecasts(family, imported_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_perm_records_recorded_at ON perm_records(recorded_at DESC);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate sqlite: %w", err)
		}
	}
	return nil
}

// SaveBulletin stores a bulletin, replacing any earlier fetch of the same month.
func (r *Repository) SaveBulletin(ctx context.Context, rec app.BulletinRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("bulletin id is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO bulletins(id, bulletin_month, source, document_json, fetched_at)
		VALUES(?, ?, ?, ?, ?)
		ON CONFLICT(bulletin_month) DO UPDATE SET
			id = excluded.id,
			source = excluded.source,
			document_json = excluded.document_json,
			fetched_at = excluded.fetched_at
	`, rec.ID, rec.BulletinMonth.UTC().Format(monthKeyLayout), rec.Source, string(rec.Document), ts(rec.FetchedAt))
	return err
}

// LatestBulletin returns the bulletin with the latest month.
func (r *Repository) LatestBulletin(ctx context.Context) (app.BulletinRecord, error) {
	list, err := r.ListBulletins(ctx, 1)
	if err != nil {
		return app.BulletinRecord{}, err
	}
	if len(list) == 0 {
		return app.BulletinRecord{}, app.ErrNotFound
	}
	return list[0], nil
}

// ListBulletins lists bulletins newest month first. limit <= 0 returns all.
func (r *Repository) ListBulletins(ctx context.Context, limit int) ([]app.BulletinRecord, error) {
	query := `SELECT id, bulletin_month, source, document_json, fetched_at FROM bulletins ORDER BY bulletin_month DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]app.BulletinRecord, 0)
	for rows.Next() {
		var (
			rec       app.BulletinRecord
			monthRaw  string
			document  string
			fetchedAt string
		)
		if err := rows.Scan(&rec.ID, &monthRaw, &rec.Source, &document, &fetchedAt); err != nil {
			return nil, err
		}
		month, err := time.Parse(monthKeyLayout, monthRaw)
		if err != nil {
			return nil, fmt.Errorf("parse bulletin month %q: %w", monthRaw, err)
		}
		rec.BulletinMonth = domain.MonthStart(month)
		rec.Document = []byte(document)
		rec.FetchedAt = parseTS(fetchedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SaveForecast stores a forecast document.
func (r *Repository) SaveForecast(ctx context.Context, rec app.ForecastRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("forecast id is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO forecasts(id, family, document_json, imported_at)
		VALUES(?, ?, ?, ?)
	`, rec.ID, string(rec.Family), string(rec.Document), ts(rec.ImportedAt))
	return err
}

// LatestForecast returns the most recently imported forecast of a family.
func (r *Repository) LatestForecast(ctx context.Context, family domain.Family) (app.ForecastRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, family, document_json, imported_at
		FROM forecasts
		WHERE family = ?
		ORDER BY imported_at DESC, rowid DESC
		LIMIT 1
	`, string(family))
	var (
		rec        app.ForecastRecord
		familyRaw  string
		document   string
		importedAt string
	)
	if err := row.Scan(&rec.ID, &familyRaw, &document, &importedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return app.ForecastRecord{}, app.ErrNotFound
		}
		return app.ForecastRecord{}, err
	}
	rec.Family = domain.Family(familyRaw)
	rec.Document = []byte(document)
	rec.ImportedAt = parseTS(importedAt)
	return rec, nil
}

// SavePermRecord stores a PERM processing figure.
func (r *Repository) SavePermRecord(ctx context.Context, rec app.PermRecord) error {
	if strings.TrimSpace(rec.ID) == "" {
		return errors.New("perm record id is required")
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO perm_records(id, calendar_days, source, recorded_at)
		VALUES(?, ?, ?, ?)
	`, rec.ID, rec.CalendarDays, rec.Source, ts(rec.RecordedAt))
	return err
}

// LatestPermRecord returns the most recently recorded PERM figure.
func (r *Repository) LatestPermRecord(ctx context.Context) (app.PermRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, calendar_days, source, recorded_at
		FROM perm_records
		ORDER BY recorded_at DESC, rowid DESC
		LIMIT 1
	`)
	var (
		rec        app.PermRecord
		recordedAt string
	)
	if err := row.Scan(&rec.ID, &rec.CalendarDays, &rec.Source, &recordedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return app.PermRecord{}, app.ErrNotFound
		}
		return app.PermRecord{}, err
	}
	rec.RecordedAt = parseTS(recordedAt)
	return rec, nil
}

// ts formats a timestamp for storage.
func ts(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTS parses input into a normalized form.
func parseTS(v string) time.Time {
	ts, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}
