// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed or incomplete caller input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports a missing resource.
var ErrNotFound = errors.New("not found")

// ErrBootstrapRequired reports that no bulletin has been fetched or imported yet.
var ErrBootstrapRequired = errors.New("bootstrap required")

// ErrConfiguration reports broken catalog, bulletin or forecast data on the server side.
var ErrConfiguration = errors.New("configuration error")

// ErrUpstreamUnavailable reports a bulletin source that could not be reached.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// DateLayout is the wire layout used for calendar dates.
const DateLayout = "2006-01-02"

// MonthLayout is the wire layout used for calendar months.
const MonthLayout = "2006-01"

// CategoryItem is one selectable category.
type CategoryItem struct {
	Label       string `json:"label"`
	InternalKey string `json:"internal_key"`
	Description string `json:"description"`
}

// FamilyItem lists the categories of one visa family.
type FamilyItem struct {
	Family     string         `json:"family"`
	Label      string         `json:"label"`
	Categories []CategoryItem `json:"categories"`
}

// CountryItem is one selectable chargeability country.
type CountryItem struct {
	Label string `json:"label"`
	Key   string `json:"key"`
}

// CatalogResponse is the selectable families, categories and countries.
type CatalogResponse struct {
	Families  []FamilyItem  `json:"families"`
	Countries []CountryItem `json:"countries"`
}

// CheckRequest captures one priority date query.
type CheckRequest struct {
	Family       string `json:"family"`
	Category     string `json:"category"`
	Country      string `json:"country"`
	PriorityDate string `json:"priority_date"`
	PermDays     int    `json:"perm_days,omitempty"`
}

// VerdictView is the evaluation of one bulletin dimension.
type VerdictView struct {
	Dimension     string `json:"dimension"`
	Outcome       string `json:"outcome"`
	CutoffText    string `json:"cutoff_text"`
	IsCurrent     bool   `json:"is_current"`
	FormattedDate string `json:"formatted_date,omitempty"`
	Raw           string `json:"raw,omitempty"`
}

// StageView is one step of the projected timeline.
type StageView struct {
	Kind    string `json:"kind"`
	Label   string `json:"label"`
	Date    string `json:"date,omitempty"`
	Display string `json:"display"`
	State   string `json:"state"`
}

// TimelineView is the projected path to a green card.
type TimelineView struct {
	Basis                     string      `json:"basis"`
	Stages                    []StageView `json:"stages"`
	Advisory                  string      `json:"advisory,omitempty"`
	Note                      string      `json:"note,omitempty"`
	EarliestActionMonth       string      `json:"earliest_action_month,omitempty"`
	AverageMonthlyAdvanceDays float64     `json:"average_monthly_advance_days,omitempty"`
}

// CheckResponse is the evaluation and timeline for one query.
type CheckResponse struct {
	BulletinMonth     string       `json:"bulletin_month"`
	Family            string       `json:"family"`
	Category          string       `json:"category"`
	Country           string       `json:"country"`
	PriorityDate      string       `json:"priority_date"`
	FinalAction       VerdictView  `json:"final_action"`
	Filing            VerdictView  `json:"filing"`
	Timeline          TimelineView `json:"timeline"`
	PermDays          int          `json:"perm_days,omitempty"`
	ForecastAvailable bool         `json:"forecast_available"`
	CheckedAt         time.Time    `json:"checked_at"`
}

// TrendRequest captures one historical comparison query.
type TrendRequest struct {
	Family    string `json:"family"`
	Category  string `json:"category"`
	Country   string `json:"country"`
	Dimension string `json:"dimension,omitempty"`
	Months    int    `json:"months,omitempty"`
}

// TrendPoint is the cutoff of one stored bulletin.
type TrendPoint struct {
	BulletinMonth string `json:"bulletin_month"`
	Present       bool   `json:"present"`
	Raw           string `json:"raw,omitempty"`
	Display       string `json:"display,omitempty"`
	Malformed     bool   `json:"malformed,omitempty"`
}

// TrendResponse compares one combination across stored bulletins.
type TrendResponse struct {
	Family         string       `json:"family"`
	Category       string       `json:"category"`
	Country        string       `json:"country"`
	Dimension      string       `json:"dimension"`
	Trend          string       `json:"trend"`
	MonthsMovement int          `json:"months_movement"`
	Points         []TrendPoint `json:"points"`
}

// BulletinRequest selects one table of the loaded bulletin.
type BulletinRequest struct {
	Family    string `json:"family"`
	Dimension string `json:"dimension,omitempty"`
	Category  string `json:"category,omitempty"`
	Country   string `json:"country,omitempty"`
}

// BulletinRow is one cell of a bulletin table.
type BulletinRow struct {
	Category  string `json:"category"`
	Country   string `json:"country"`
	Raw       string `json:"raw"`
	Display   string `json:"display"`
	Malformed bool   `json:"malformed,omitempty"`
}

// BulletinResponse is one table of the loaded bulletin, optionally filtered.
type BulletinResponse struct {
	BulletinMonth string        `json:"bulletin_month"`
	Family        string        `json:"family"`
	Dimension     string        `json:"dimension"`
	Rows          []BulletinRow `json:"rows"`
}

// Service is the app-facing surface shared by HTTP and MCP adapters.
type Service interface {
	ListCategories(context.Context) (CatalogResponse, error)
	CheckPriorityDate(context.Context, CheckRequest) (CheckResponse, error)
	BulletinTrend(context.Context, TrendRequest) (TrendResponse, error)
	CurrentCutoff(context.Context, BulletinRequest) (BulletinResponse, error)
}
