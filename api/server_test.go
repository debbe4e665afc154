package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"buildcost/core/types"
	"buildcost/internal/app"
	"buildcost/internal/config"
	"buildcost/internal/logging"
)

func newTestServer(t *testing.T, start bool) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Storage.Path = ""

	a, err := app.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	if start {
		if err := a.Start(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	return NewServer(a, "test")
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body is not the envelope: %v\n%s", err, rec.Body.String())
	}
	return resp.Error
}

func TestHealthCarriesRequestID(t *testing.T) {
	s := newTestServer(t, false)
	rec := do(t, s, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("expected caller id to be kept, got %q", got)
	}
}

func TestReadiness(t *testing.T) {
	rec := do(t, newTestServer(t, false), http.MethodGet, "/ready", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before start, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Code != "NOT_READY" {
		t.Errorf("expected NOT_READY, got %+v", body)
	}

	rec = do(t, newTestServer(t, true), http.MethodGet, "/ready", "")
	var ready ReadyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &ready); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("expected ready response, got %d %s", rec.Code, rec.Body.String())
	}
	if !ready.Ready || ready.Region != "national" || ready.Snapshot.CatalogHash == "" {
		t.Errorf("unexpected readiness %+v", ready)
	}
}

func TestListCalculators(t *testing.T) {
	rec := do(t, newTestServer(t, true), http.MethodGet, "/calculators", "")
	var resp CalculatorsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if len(resp.Calculators) != 4 || !resp.CanCompute {
		t.Fatalf("unexpected listing %+v", resp)
	}
	if resp.Calculators[0].ID != "concrete-slab-pro" || len(resp.Calculators[0].Fields) == 0 {
		t.Errorf("unexpected first calculator %+v", resp.Calculators[0])
	}
}

func TestCalculateStateAndExport(t *testing.T) {
	s := newTestServer(t, true)

	rec := do(t, s, http.MethodPost, "/calculators/concrete-slab-pro/calculate", `{"length": 20, "width": 10, "thickness": 4}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("calculate: %d %s", rec.Code, rec.Body.String())
	}
	var calc CalculateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &calc); err != nil {
		t.Fatal(err)
	}
	if !calc.Persisted || calc.Result.Region != "national" || !calc.Result.Costs.Total.IsPositive() {
		t.Errorf("unexpected calculation %+v", calc)
	}

	rec = do(t, s, http.MethodGet, "/calculators/concrete-slab-pro/state", "")
	var st types.PersistedCalculatorState
	if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("state: %d %s", rec.Code, rec.Body.String())
	}
	if st.LastResult == nil || !st.LastResult.Costs.Total.Equal(calc.Result.Costs.Total) {
		t.Errorf("persisted state does not match result: %+v", st)
	}

	rec = do(t, s, http.MethodGet, "/calculators/concrete-slab-pro/export?format=csv", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("export: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(rec.Body.String(), "Concrete Slab Estimate") {
		t.Errorf("unexpected csv:\n%s", rec.Body.String())
	}

	rec = do(t, s, http.MethodDelete, "/calculators/concrete-slab-pro/state", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rec.Code)
	}
	rec = do(t, s, http.MethodGet, "/calculators/concrete-slab-pro/state", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after reset, got %d", rec.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		start  bool
		method string
		path   string
		body   string
		status int
		code   string
	}{
		{"unknown calculator", true, http.MethodPost, "/calculators/deck/calculate", `{}`, http.StatusNotFound, "NOT_FOUND"},
		{"invalid input", true, http.MethodPost, "/calculators/concrete-slab-pro/calculate", `{"length": -1, "width": 10}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"malformed body", true, http.MethodPost, "/calculators/concrete-slab-pro/calculate", `[1,2`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"not ready", false, http.MethodPost, "/calculators/concrete-slab-pro/calculate", `{"length": 20, "width": 10}`, http.StatusServiceUnavailable, "NOT_READY"},
		{"nothing to export", true, http.MethodGet, "/calculators/roofing-calculator/export?format=text", "", http.StatusUnprocessableEntity, "EXPORT_ERROR"},
		{"unknown format", true, http.MethodGet, "/calculators/roofing-calculator/export?format=xlsx", "", http.StatusUnprocessableEntity, "EXPORT_ERROR"},
		{"unknown price", true, http.MethodGet, "/pricing/price?category=concrete&item=unobtainium", "", http.StatusNotFound, "PRICING_ERROR"},
		{"missing price params", true, http.MethodGet, "/pricing/price?category=concrete", "", http.StatusBadRequest, "VALIDATION_ERROR"},
		{"bad region code", true, http.MethodPut, "/pricing/region", `{"region": "../etc"}`, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"missing region file", true, http.MethodPut, "/pricing/region", `{"region": "atlantis"}`, http.StatusBadGateway, "DATA_LOAD_ERROR"},
		{"switch before init", false, http.MethodPut, "/pricing/region", `{"region": "south"}`, http.StatusServiceUnavailable, "NOT_READY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(t, tt.start), tt.method, tt.path, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			body := decodeError(t, rec)
			if body.Code != tt.code {
				t.Errorf("expected %s, got %+v", tt.code, body)
			}
			if body.RequestID == "" {
				t.Error("expected request id in error body")
			}
		})
	}
}

func TestValidationErrorListsFields(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		fields []string
	}{
		{"out of range", `{"length": -1, "width": 0}`, []string{"length", "width"}},
		{"labor rate NaN", `{"length": 20, "width": 10, "labor_rate": "NaN"}`, []string{"labor_rate"}},
		{"labor rate Inf", `{"length": 20, "width": 10, "labor_rate": "Inf"}`, []string{"labor_rate"}},
		{"length -Inf", `{"length": "-Inf", "width": 10}`, []string{"length"}},
	}

	s := newTestServer(t, true)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodPost, "/calculators/concrete-slab-pro/calculate", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			body := decodeError(t, rec)
			if len(body.Fields) != len(tt.fields) {
				t.Fatalf("expected fields %v, got %+v", tt.fields, body.Fields)
			}
			for i, f := range tt.fields {
				if body.Fields[i].Field != f {
					t.Errorf("expected field %s at %d, got %+v", f, i, body.Fields[i])
				}
			}
		})
	}
}

func TestPriceAndRegionSwitch(t *testing.T) {
	s := newTestServer(t, true)

	price := func() PriceResponse {
		t.Helper()
		rec := do(t, s, http.MethodGet, "/pricing/price?category=concrete&item=ready_mix_4000psi&unit=per_cubic_yard", "")
		var p PriceResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil || rec.Code != http.StatusOK {
			t.Fatalf("price: %d %s", rec.Code, rec.Body.String())
		}
		return p
	}

	if p := price(); !p.UnitPrice.Equal(decimal.NewFromInt(140)) {
		t.Errorf("expected national price 140, got %s", p.UnitPrice)
	}

	rec := do(t, s, http.MethodPut, "/pricing/region", `{"region": "west_coast"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("switch: %d %s", rec.Code, rec.Body.String())
	}

	p := price()
	if !p.UnitPrice.Equal(decimal.NewFromInt(154)) || p.Region != "west_coast" {
		t.Errorf("expected west coast price 154, got %+v", p)
	}
	if !p.BasePrice.Equal(decimal.NewFromInt(140)) {
		t.Errorf("base price must not change with region, got %s", p.BasePrice)
	}
}
