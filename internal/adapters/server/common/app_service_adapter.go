package common

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/evanschultz/pdwatch/internal/app"
	"github.com/evanschultz/pdwatch/internal/domain"
)

// AppServiceAdapter maps transport contracts onto app.Service checks, trends and bulletin reads.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// ListCategories returns the selectable catalog.
func (a *AppServiceAdapter) ListCategories(_ context.Context) (CatalogResponse, error) {
	if a == nil || a.service == nil {
		return CatalogResponse{}, fmt.Errorf("app service adapter is not configured: %w", ErrConfiguration)
	}
	return convertCatalog(a.service.Catalog()), nil
}

// CheckPriorityDate evaluates one priority date and projects its timeline.
func (a *AppServiceAdapter) CheckPriorityDate(ctx context.Context, in CheckRequest) (CheckResponse, error) {
	if a == nil || a.service == nil {
		return CheckResponse{}, fmt.Errorf("app service adapter is not configured: %w", ErrConfiguration)
	}
	family, err := domain.ParseFamily(in.Family)
	if err != nil {
		return CheckResponse{}, mapAppError("check priority date", err)
	}
	pd, err := domain.ParseDate(in.PriorityDate)
	if err != nil {
		return CheckResponse{}, mapAppError("check priority date", err)
	}
	if in.PermDays < 0 {
		return CheckResponse{}, fmt.Errorf("check priority date: perm_days must be >= 0: %w", ErrInvalidRequest)
	}
	report, err := a.service.CheckPriorityDate(ctx, app.CheckInput{
		Family:       family,
		Category:     strings.TrimSpace(in.Category),
		Country:      strings.TrimSpace(in.Country),
		PriorityDate: pd,
		PermDays:     in.PermDays,
	})
	if err != nil {
		return CheckResponse{}, mapAppError("check priority date", err)
	}
	return ConvertReport(report), nil
}

// BulletinTrend compares one combination across stored bulletins.
func (a *AppServiceAdapter) BulletinTrend(ctx context.Context, in TrendRequest) (TrendResponse, error) {
	if a == nil || a.service == nil {
		return TrendResponse{}, fmt.Errorf("app service adapter is not configured: %w", ErrConfiguration)
	}
	family, err := domain.ParseFamily(in.Family)
	if err != nil {
		return TrendResponse{}, mapAppError("bulletin trend", err)
	}
	dim, err := parseOptionalDimension(in.Dimension)
	if err != nil {
		return TrendResponse{}, mapAppError("bulletin trend", err)
	}
	if in.Months < 0 {
		return TrendResponse{}, fmt.Errorf("bulletin trend: months must be >= 0: %w", ErrInvalidRequest)
	}
	if strings.TrimSpace(in.Country) == "" {
		return TrendResponse{}, fmt.Errorf("bulletin trend: country is required: %w", ErrInvalidRequest)
	}
	cmp, err := a.service.BulletinTrend(ctx, app.TrendInput{
		Family:    family,
		Category:  strings.TrimSpace(in.Category),
		Country:   strings.TrimSpace(in.Country),
		Dimension: dim,
		Months:    in.Months,
	})
	if err != nil {
		return TrendResponse{}, mapAppError("bulletin trend", err)
	}
	return convertComparison(cmp), nil
}

// CurrentCutoff returns one table of the loaded bulletin, filtered by category and country when given.
func (a *AppServiceAdapter) CurrentCutoff(ctx context.Context, in BulletinRequest) (BulletinResponse, error) {
	if a == nil || a.service == nil {
		return BulletinResponse{}, fmt.Errorf("app service adapter is not configured: %w", ErrConfiguration)
	}
	family, err := domain.ParseFamily(in.Family)
	if err != nil {
		return BulletinResponse{}, mapAppError("current cutoff", err)
	}
	dim, err := parseOptionalDimension(in.Dimension)
	if err != nil {
		return BulletinResponse{}, mapAppError("current cutoff", err)
	}
	categoryKey := ""
	if strings.TrimSpace(in.Category) != "" {
		category, err := domain.ResolveCategory(family, in.Category)
		if err != nil {
			return BulletinResponse{}, mapAppError("current cutoff", err)
		}
		categoryKey = domain.CategoryKey(category.InternalKey)
	}
	countryKey := ""
	if strings.TrimSpace(in.Country) != "" {
		countryKey = domain.CountryKey(family, in.Country)
	}

	view, err := a.service.Bulletin(ctx, dim, family)
	if err != nil {
		return BulletinResponse{}, mapAppError("current cutoff", err)
	}
	out := BulletinResponse{
		BulletinMonth: formatMonth(view.BulletinMonth),
		Family:        string(view.Family),
		Dimension:     string(view.Dimension),
		Rows:          make([]BulletinRow, 0, len(view.Rows)),
	}
	for _, cell := range view.Rows {
		if categoryKey != "" && domain.CategoryKey(cell.RawCategory) != categoryKey {
			continue
		}
		if countryKey != "" && domain.CountryKey(family, cell.RawCountry) != countryKey {
			continue
		}
		out.Rows = append(out.Rows, convertCell(cell))
	}
	return out, nil
}

// parseOptionalDimension defaults an empty dimension to final action dates.
func parseOptionalDimension(raw string) (domain.Dimension, error) {
	if strings.TrimSpace(raw) == "" {
		return domain.FinalAction, nil
	}
	return domain.ParseDimension(raw)
}

// convertCatalog maps the domain catalog to its wire form.
func convertCatalog(catalog domain.Catalog) CatalogResponse {
	out := CatalogResponse{
		Families:  make([]FamilyItem, 0, len(catalog.Families)),
		Countries: make([]CountryItem, 0, len(catalog.Countries)),
	}
	for _, family := range catalog.Families {
		item := FamilyItem{
			Family:     string(family.Family),
			Label:      family.Label,
			Categories: make([]CategoryItem, 0, len(family.Categories)),
		}
		for _, category := range family.Categories {
			item.Categories = append(item.Categories, CategoryItem{
				Label:       category.Label,
				InternalKey: category.InternalKey,
				Description: category.Description,
			})
		}
		out.Families = append(out.Families, item)
	}
	for _, country := range catalog.Countries {
		out.Countries = append(out.Countries, CountryItem{Label: country.Label, Key: country.Key})
	}
	return out
}

// ConvertReport maps one app report to its wire form.
func ConvertReport(report app.Report) CheckResponse {
	eval := report.Evaluation
	return CheckResponse{
		BulletinMonth:     formatMonth(report.BulletinMonth),
		Family:            string(eval.Family),
		Category:          eval.Category.Label,
		Country:           domain.CountryLabel(eval.CountryKey),
		PriorityDate:      eval.PriorityDate.Format(DateLayout),
		FinalAction:       convertVerdict(eval.FinalAction),
		Filing:            convertVerdict(eval.Filing),
		Timeline:          convertTimeline(report.Timeline),
		PermDays:          report.PermDays,
		ForecastAvailable: report.ForecastAvailable,
		CheckedAt:         report.CheckedAt.UTC(),
	}
}

// convertVerdict maps one dimension verdict to its wire form.
func convertVerdict(v domain.Verdict) VerdictView {
	out := VerdictView{
		Dimension:  string(v.Dimension),
		Outcome:    string(v.Outcome),
		CutoffText: v.Text(),
		IsCurrent:  v.IsCurrent(),
		Raw:        v.Raw,
	}
	if v.Result != nil && v.Result.FormattedDate != nil {
		out.FormattedDate = v.Result.FormattedDate.Format(DateLayout)
	}
	return out
}

// convertTimeline maps one projected timeline to its wire form.
func convertTimeline(t domain.TimelineResult) TimelineView {
	out := TimelineView{
		Basis:                     string(t.Basis),
		Stages:                    make([]StageView, 0, len(t.Stages)),
		Advisory:                  t.Advisory,
		Note:                      t.Note,
		EarliestActionMonth:       formatMonth(t.EarliestActionMonth),
		AverageMonthlyAdvanceDays: t.AverageMonthlyAdvanceDays,
	}
	for _, stage := range t.Stages {
		view := StageView{
			Kind:    string(stage.Kind),
			Label:   stage.Label,
			Display: stage.Display,
			State:   string(stage.State),
		}
		if stage.Date != nil {
			view.Date = stage.Date.Format(DateLayout)
		}
		out.Stages = append(out.Stages, view)
	}
	return out
}

// convertComparison maps one historical comparison to its wire form.
func convertComparison(cmp domain.HistoricalComparison) TrendResponse {
	out := TrendResponse{
		Family:         string(cmp.Family),
		Category:       cmp.Category.Label,
		Country:        domain.CountryLabel(cmp.CountryKey),
		Dimension:      string(cmp.Dimension),
		Trend:          string(cmp.Trend),
		MonthsMovement: cmp.MonthsMovement,
		Points:         make([]TrendPoint, 0, len(cmp.Points)),
	}
	for _, point := range cmp.Points {
		out.Points = append(out.Points, TrendPoint{
			BulletinMonth: formatMonth(point.BulletinMonth),
			Present:       point.Present,
			Raw:           point.Raw,
			Display:       point.Value.Display(),
			Malformed:     point.Malformed,
		})
	}
	return out
}

// convertCell maps one bulletin cell to its wire form.
func convertCell(cell domain.Cell) BulletinRow {
	row := BulletinRow{
		Category:  cell.RawCategory,
		Country:   cell.RawCountry,
		Raw:       cell.Raw,
		Display:   cell.Value.Display(),
		Malformed: cell.Malformed(),
	}
	if row.Malformed {
		row.Display = "Invalid date format in source data (" + cell.Raw + ")"
	}
	return row
}

// formatMonth renders a month for the wire or returns empty for zero values.
func formatMonth(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(MonthLayout)
}

// mapAppError maps app and domain errors into transport-facing sentinel errors.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, app.ErrNoBulletin):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrBootstrapRequired, err))
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case domain.IsInputError(err),
		errors.Is(err, domain.ErrUnknownCategory),
		errors.Is(err, app.ErrInvalidInput):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	case errors.Is(err, app.ErrSourceUnavailable):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrUpstreamUnavailable, err))
	case domain.IsConfigurationError(err),
		errors.Is(err, domain.ErrInvalidBulletin),
		errors.Is(err, domain.ErrInvalidForecast),
		errors.Is(err, domain.ErrMalformedCutoff):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConfiguration, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
