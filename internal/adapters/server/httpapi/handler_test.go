package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/evanschultz/pdwatch/internal/adapters/server/common"
)

// stubService provides deterministic responses for handler tests.
type stubService struct {
	catalog     common.CatalogResponse
	check       common.CheckResponse
	trend       common.TrendResponse
	bulletin    common.BulletinResponse
	err         error
	lastCheck   common.CheckRequest
	lastTrend   common.TrendRequest
	lastCutoffs common.BulletinRequest
}

// ListCategories returns the configured catalog.
func (s *stubService) ListCategories(context.Context) (common.CatalogResponse, error) {
	if s.err != nil {
		return common.CatalogResponse{}, s.err
	}
	return s.catalog, nil
}

// CheckPriorityDate records the request and returns the configured response.
func (s *stubService) CheckPriorityDate(_ context.Context, req common.CheckRequest) (common.CheckResponse, error) {
	s.lastCheck = req
	if s.err != nil {
		return common.CheckResponse{}, s.err
	}
	return s.check, nil
}

// BulletinTrend records the request and returns the configured response.
func (s *stubService) BulletinTrend(_ context.Context, req common.TrendRequest) (common.TrendResponse, error) {
	s.lastTrend = req
	if s.err != nil {
		return common.TrendResponse{}, s.err
	}
	return s.trend, nil
}

// CurrentCutoff records the request and returns the configured response.
func (s *stubService) CurrentCutoff(_ context.Context, req common.BulletinRequest) (common.BulletinResponse, error) {
	s.lastCutoffs = req
	if s.err != nil {
		return common.BulletinResponse{}, s.err
	}
	return s.bulletin, nil
}

// decodeEnvelope decodes one structured error response.
func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) ErrorEnvelope {
	t.Helper()
	var out ErrorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

// TestHandlerCategories verifies catalog responses.
func TestHandlerCategories(t *testing.T) {
	svc := &stubService{catalog: common.CatalogResponse{
		Families: []common.FamilyItem{{Family: "family", Label: "Family-Based"}},
	}}
	handler := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/categories", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var got common.CatalogResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got.Families) != 1 || got.Families[0].Family != "family" {
		t.Fatalf("families = %#v", got.Families)
	}
}

// TestHandlerCheckSuccess verifies POST /check decodes the body and returns the report.
func TestHandlerCheckSuccess(t *testing.T) {
	svc := &stubService{check: common.CheckResponse{
		BulletinMonth: "2026-10",
		Filing:        common.VerdictView{Dimension: "dates_for_filing", IsCurrent: true},
	}}
	handler := NewHandler(svc)

	body := `{"family":"employment","category":"EB2","country":"India","priority_date":"2012-05-01","perm_days":400}`
	req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if svc.lastCheck.Category != "EB2" || svc.lastCheck.PermDays != 400 {
		t.Fatalf("request = %#v", svc.lastCheck)
	}
	var got common.CheckResponse
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !got.Filing.IsCurrent || got.BulletinMonth != "2026-10" {
		t.Fatalf("response = %#v", got)
	}
}

// TestHandlerCheckRejectsBadBodies verifies strict body decoding.
func TestHandlerCheckRejectsBadBodies(t *testing.T) {
	cases := map[string]string{
		"unknown field": `{"family":"family","zodiac":"leo"}`,
		"trailing":      `{"family":"family"}{"family":"family"}`,
		"not json":      `family=family`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			handler := NewHandler(&stubService{})
			req := httptest.NewRequest(http.MethodPost, "/check", strings.NewReader(body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
			}
			if got := decodeEnvelope(t, rec); got.Error.Code != "invalid_request" {
				t.Fatalf("code = %q, want invalid_request", got.Error.Code)
			}
		})
	}
}

// TestHandlerTrendQuery verifies query parameter mapping.
func TestHandlerTrendQuery(t *testing.T) {
	svc := &stubService{trend: common.TrendResponse{Trend: "advancing"}}
	handler := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/trend?family=employment&category=EB3&country=india&dimension=filing&months=4", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	want := common.TrendRequest{Family: "employment", Category: "EB3", Country: "india", Dimension: "filing", Months: 4}
	if svc.lastTrend != want {
		t.Fatalf("request = %#v, want %#v", svc.lastTrend, want)
	}

	req = httptest.NewRequest(http.MethodGet, "/trend?family=employment&months=many", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad months status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// TestHandlerBulletinQuery verifies bulletin filters pass through.
func TestHandlerBulletinQuery(t *testing.T) {
	svc := &stubService{bulletin: common.BulletinResponse{BulletinMonth: "2026-10"}}
	handler := NewHandler(svc)

	req := httptest.NewRequest(http.MethodGet, "/bulletin?family=family&category=F2A&country=mexico", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if svc.lastCutoffs.Category != "F2A" || svc.lastCutoffs.Country != "mexico" || svc.lastCutoffs.Dimension != "" {
		t.Fatalf("request = %#v", svc.lastCutoffs)
	}
}

// TestHandlerErrorMapping verifies structured status mapping for service errors.
func TestHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid request",
			err:        errors.Join(common.ErrInvalidRequest, errors.New("bad input")),
			wantStatus: http.StatusBadRequest,
			wantCode:   "invalid_request",
		},
		{
			name:       "bootstrap required",
			err:        errors.Join(common.ErrBootstrapRequired, errors.New("no bulletin")),
			wantStatus: http.StatusConflict,
			wantCode:   "bootstrap_required",
		},
		{
			name:       "not found",
			err:        errors.Join(common.ErrNotFound, errors.New("missing")),
			wantStatus: http.StatusNotFound,
			wantCode:   "not_found",
		},
		{
			name:       "configuration",
			err:        errors.Join(common.ErrConfiguration, errors.New("bad policy")),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "configuration_error",
		},
		{
			name:       "upstream",
			err:        errors.Join(common.ErrUpstreamUnavailable, errors.New("timeout")),
			wantStatus: http.StatusBadGateway,
			wantCode:   "upstream_unavailable",
		},
		{
			name:       "internal error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   "internal_error",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handler := NewHandler(&stubService{err: tc.err})
			req := httptest.NewRequest(http.MethodGet, "/bulletin?family=family", nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tc.wantStatus)
			}
			if got := decodeEnvelope(t, rec); got.Error.Code != tc.wantCode {
				t.Fatalf("code = %q, want %q", got.Error.Code, tc.wantCode)
			}
		})
	}
}

// TestHandlerRouting verifies unknown paths and wrong methods.
func TestHandlerRouting(t *testing.T) {
	handler := NewHandler(&stubService{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown path status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/check", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /check status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if got := rec.Header().Get("Allow"); got != http.MethodPost {
		t.Fatalf("Allow = %q, want POST", got)
	}

	rec = httptest.NewRecorder()
	NewHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("nil service status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}
