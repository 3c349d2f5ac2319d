package common

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/evanschultz/pdwatch/internal/adapters/storage/sqlite"
	"github.com/evanschultz/pdwatch/internal/app"
	"github.com/evanschultz/pdwatch/internal/domain"
)

// fixtureBulletin is a small two-family bulletin used across adapter tests.
const fixtureBulletin = `{"record":{
	"bulletin_month":"2026-10",
	"final_action_dates":{
		"family":{"F2A":{"All Chargeability Areas Except Those Listed":"01FEB24","MEXICO":"U"}},
		"employment":{"2nd":{"All Chargeability Areas Except Those Listed":"01APR23","CHINA-mainland born":"01JAN21"}}
	},
	"dates_for_filing":{
		"family":{"F2A":{"All Chargeability Areas Except Those Listed":"C"}},
		"employment":{"2nd":{"All Chargeability Areas Except Those Listed":"01JAN24","INDIA":"15JUL13x"}}
	}
}}`

// fixtureForecast carries a short EB2 series.
const fixtureForecast = `{"EB2":{
	"2026-11":{"cutoff_date":"2024-01-01"},
	"2026-12":{"cutoff_date":"2024-02-01"}
}}`

// newAdapter builds one adapter over an in-memory repository and optionally seeds it.
func newAdapter(t *testing.T, seed bool) *AppServiceAdapter {
	t.Helper()
	repo, err := sqlite.OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	ids := 0
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	svc, err := app.NewService(repo, nil, func() string {
		ids++
		return fmt.Sprintf("id-%d", ids)
	}, func() time.Time { return now }, app.ServiceConfig{})
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	if seed {
		ctx := context.Background()
		if _, err := svc.ImportBulletin(ctx, []byte(fixtureBulletin), "", "test"); err != nil {
			t.Fatalf("ImportBulletin() error = %v", err)
		}
		if _, err := svc.ImportForecast(ctx, domain.EmploymentBased, []byte(fixtureForecast)); err != nil {
			t.Fatalf("ImportForecast() error = %v", err)
		}
	}
	return NewAppServiceAdapter(svc)
}

// TestAdapterListCategories verifies the catalog carries both families and the fixed countries.
func TestAdapterListCategories(t *testing.T) {
	adapter := newAdapter(t, false)
	catalog, err := adapter.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories() error = %v", err)
	}
	if len(catalog.Families) != 2 {
		t.Fatalf("families = %d, want 2", len(catalog.Families))
	}
	if catalog.Families[0].Family != "family" || catalog.Families[1].Family != "employment" {
		t.Fatalf("family order = %#v", catalog.Families)
	}
	if len(catalog.Countries) != 5 {
		t.Fatalf("countries = %d, want 5", len(catalog.Countries))
	}
}

// TestAdapterCheckPriorityDate verifies wire mapping of verdicts and timeline.
func TestAdapterCheckPriorityDate(t *testing.T) {
	adapter := newAdapter(t, true)
	got, err := adapter.CheckPriorityDate(context.Background(), CheckRequest{
		Family:       "employment",
		Category:     "EB2",
		Country:      "All Chargeability Areas",
		PriorityDate: "2023-12-20",
	})
	if err != nil {
		t.Fatalf("CheckPriorityDate() error = %v", err)
	}
	if got.BulletinMonth != "2026-10" {
		t.Fatalf("bulletin_month = %q, want 2026-10", got.BulletinMonth)
	}
	if got.FinalAction.IsCurrent || got.FinalAction.Outcome != "date" {
		t.Fatalf("final action = %#v", got.FinalAction)
	}
	if got.FinalAction.FormattedDate != "2023-04-01" {
		t.Fatalf("final action date = %q, want 2023-04-01", got.FinalAction.FormattedDate)
	}
	if !got.Filing.IsCurrent {
		t.Fatalf("filing = %#v, want current", got.Filing)
	}
	if got.Timeline.Basis != string(domain.BasisCurrent) {
		t.Fatalf("basis = %q, want current", got.Timeline.Basis)
	}
	if !got.ForecastAvailable {
		t.Fatal("forecast_available = false, want true")
	}
	if got.Country != "All Chargeability Areas" {
		t.Fatalf("country = %q", got.Country)
	}
}

// TestAdapterCheckNoDataAndMalformed verifies absent and malformed cells are reported in-result.
func TestAdapterCheckNoDataAndMalformed(t *testing.T) {
	adapter := newAdapter(t, true)
	got, err := adapter.CheckPriorityDate(context.Background(), CheckRequest{
		Family:       "employment",
		Category:     "EB2",
		Country:      "India",
		PriorityDate: "2012-01-01",
	})
	if err != nil {
		t.Fatalf("CheckPriorityDate() error = %v", err)
	}
	if got.FinalAction.Outcome != string(domain.OutcomeNoData) {
		t.Fatalf("final action outcome = %q, want no_data", got.FinalAction.Outcome)
	}
	if got.Filing.Outcome != string(domain.OutcomeMalformed) {
		t.Fatalf("filing outcome = %q, want malformed", got.Filing.Outcome)
	}
	if got.Filing.IsCurrent {
		t.Fatal("malformed filing must not be current")
	}
}

// TestAdapterErrorMapping verifies app and domain errors map onto transport sentinels.
func TestAdapterErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		seed    bool
		request CheckRequest
		want    error
	}{
		{
			name:    "missing family",
			seed:    true,
			request: CheckRequest{Category: "EB2", Country: "India", PriorityDate: "2020-01-01"},
			want:    ErrInvalidRequest,
		},
		{
			name:    "future date",
			seed:    true,
			request: CheckRequest{Family: "employment", Category: "EB2", Country: "India", PriorityDate: "2030-01-01"},
			want:    ErrInvalidRequest,
		},
		{
			name:    "bad date",
			seed:    true,
			request: CheckRequest{Family: "employment", Category: "EB2", Country: "India", PriorityDate: "someday"},
			want:    ErrInvalidRequest,
		},
		{
			name:    "unknown category",
			seed:    true,
			request: CheckRequest{Family: "employment", Category: "EB9", Country: "India", PriorityDate: "2020-01-01"},
			want:    ErrInvalidRequest,
		},
		{
			name:    "no bulletin",
			seed:    false,
			request: CheckRequest{Family: "employment", Category: "EB2", Country: "India", PriorityDate: "2020-01-01"},
			want:    ErrBootstrapRequired,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			adapter := newAdapter(t, tc.seed)
			_, err := adapter.CheckPriorityDate(context.Background(), tc.request)
			if !errors.Is(err, tc.want) {
				t.Fatalf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

// TestAdapterCurrentCutoffFilters verifies category and country filtering of bulletin rows.
func TestAdapterCurrentCutoffFilters(t *testing.T) {
	adapter := newAdapter(t, true)
	ctx := context.Background()

	all, err := adapter.CurrentCutoff(ctx, BulletinRequest{Family: "family"})
	if err != nil {
		t.Fatalf("CurrentCutoff() error = %v", err)
	}
	if all.Dimension != string(domain.FinalAction) || len(all.Rows) != 2 {
		t.Fatalf("unfiltered = %#v", all)
	}

	mexico, err := adapter.CurrentCutoff(ctx, BulletinRequest{Family: "family", Category: "F2A", Country: "mexico"})
	if err != nil {
		t.Fatalf("CurrentCutoff(mexico) error = %v", err)
	}
	if len(mexico.Rows) != 1 || mexico.Rows[0].Raw != "U" || mexico.Rows[0].Display != "Unavailable" {
		t.Fatalf("mexico rows = %#v", mexico.Rows)
	}

	china, err := adapter.CurrentCutoff(ctx, BulletinRequest{Family: "employment", Category: "EB2", Country: "China"})
	if err != nil {
		t.Fatalf("CurrentCutoff(china) error = %v", err)
	}
	if len(china.Rows) != 1 || china.Rows[0].Raw != "01JAN21" {
		t.Fatalf("china rows = %#v", china.Rows)
	}

	filing, err := adapter.CurrentCutoff(ctx, BulletinRequest{Family: "employment", Dimension: "filing", Country: "India"})
	if err != nil {
		t.Fatalf("CurrentCutoff(filing) error = %v", err)
	}
	if len(filing.Rows) != 1 || !filing.Rows[0].Malformed {
		t.Fatalf("filing rows = %#v", filing.Rows)
	}

	if _, err := adapter.CurrentCutoff(ctx, BulletinRequest{Family: "family", Dimension: "sideways"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("bad dimension error = %v, want ErrInvalidRequest", err)
	}
}

// TestAdapterBulletinTrend verifies one stored bulletin yields one present point.
func TestAdapterBulletinTrend(t *testing.T) {
	adapter := newAdapter(t, true)
	got, err := adapter.BulletinTrend(context.Background(), TrendRequest{
		Family:   "employment",
		Category: "EB2",
		Country:  "All Chargeability Areas",
	})
	if err != nil {
		t.Fatalf("BulletinTrend() error = %v", err)
	}
	if got.Dimension != string(domain.FinalAction) {
		t.Fatalf("dimension = %q", got.Dimension)
	}
	if len(got.Points) != 1 || !got.Points[0].Present || got.Points[0].BulletinMonth != "2026-10" {
		t.Fatalf("points = %#v", got.Points)
	}

	if _, err := adapter.BulletinTrend(context.Background(), TrendRequest{Family: "employment", Category: "EB2"}); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("missing country error = %v, want ErrInvalidRequest", err)
	}
}

// TestMapAppErrorPassthrough verifies nil and unknown errors keep their identity.
func TestMapAppErrorPassthrough(t *testing.T) {
	if err := mapAppError("op", nil); err != nil {
		t.Fatalf("mapAppError(nil) = %v, want nil", err)
	}
	base := errors.New("boom")
	err := mapAppError("op", base)
	if !errors.Is(err, base) {
		t.Fatalf("mapAppError() lost cause: %v", err)
	}
	for _, sentinel := range []error{ErrInvalidRequest, ErrNotFound, ErrBootstrapRequired, ErrConfiguration} {
		if errors.Is(err, sentinel) {
			t.Fatalf("unexpected sentinel %v in %v", sentinel, err)
		}
	}
	if err := mapAppError("op", domain.ErrInvalidBulletin); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("invalid bulletin = %v, want ErrConfiguration", err)
	}
}
