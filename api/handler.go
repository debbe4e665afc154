package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"buildcost/core/calculator"
	"buildcost/core/export"
	"buildcost/core/types"
	apperrors "buildcost/internal/errors"
)

const maxBodyBytes = 1 << 20

// handleHealth handles GET /health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    s.now().UTC(),
	}, http.StatusOK)
}

// handleReady handles GET /ready
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	engine := s.app.Engine
	if !engine.Ready() {
		s.writeError(w, r, apperrors.New(apperrors.TypeNotReady, "pricing data not loaded"))
		return
	}
	s.writeJSON(w, ReadyResponse{
		Ready:    true,
		Region:   engine.Region(),
		Snapshot: engine.Snapshot(),
	}, http.StatusOK)
}

// handleListCalculators handles GET /calculators
func (s *Server) handleListCalculators(w http.ResponseWriter, r *http.Request) {
	resp := CalculatorsResponse{CanCompute: s.app.Engine.Ready()}
	for _, svc := range s.app.Calculators() {
		calc := svc.Calculator()
		resp.Calculators = append(resp.Calculators, CalculatorInfo{
			ID:     calc.ID(),
			Title:  calc.Title(),
			Fields: calc.Fields(),
		})
	}
	s.writeJSON(w, resp, http.StatusOK)
}

func (s *Server) calculator(w http.ResponseWriter, r *http.Request) (*calculator.Service, bool) {
	svc, err := s.app.Calculator(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return svc, true
}

// handleCalculate handles POST /calculators/{id}/calculate.
// An empty body recalculates the current form.
func (s *Server) handleCalculate(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.calculator(w, r)
	if !ok {
		return
	}

	var raw types.Inputs
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&raw)
	if err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, apperrors.Wrap(apperrors.TypeValidation, "request body must be a JSON object of field values", err))
		return
	}

	out, err := svc.Calculate(r.Context(), raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, CalculateResponse{Result: out.Result, Persisted: out.Persisted}, http.StatusOK)
}

// handleGetState handles GET /calculators/{id}/state
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.calculator(w, r)
	if !ok {
		return
	}
	st, found := s.app.Store.LoadCalculator(r.Context(), svc.ID())
	if !found {
		s.writeError(w, r, apperrors.NotFound("saved state", svc.ID()))
		return
	}
	s.writeJSON(w, st, http.StatusOK)
}

// handleDeleteState handles DELETE /calculators/{id}/state
func (s *Server) handleDeleteState(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.calculator(w, r)
	if !ok {
		return
	}
	if !svc.Reset(r.Context()) {
		s.writeError(w, r, apperrors.New(apperrors.TypeStorage, "failed to clear saved state"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleExport handles GET /calculators/{id}/export?format=
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.calculator(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = s.app.Config.Export.Format
	}
	result := svc.Last()

	if format == "json" {
		if result == nil {
			s.writeError(w, r, apperrors.New(apperrors.TypeExport, "nothing to export; run a calculation first"))
			return
		}
		s.writeJSON(w, result, http.StatusOK)
		return
	}

	var buf bytes.Buffer
	if err := s.app.Exporter.Export(r.Context(), &buf, export.Format(format), result); err != nil {
		s.writeError(w, r, err)
		return
	}

	switch export.Format(format) {
	case export.FormatCSV:
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	default:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", svc.ID()+"."+format))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// handlePrice handles GET /pricing/price?category=&item=&unit=
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	category, item, unit := q.Get("category"), q.Get("item"), q.Get("unit")
	if category == "" || item == "" {
		s.writeError(w, r, apperrors.Invalid("category and item are required"))
		return
	}

	price, err := s.app.Engine.Resolve(category, item, unit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, PriceResponse{
		Category:       category,
		Item:           item,
		Unit:           unit,
		UnitPrice:      price.UnitPrice,
		BasePrice:      price.BasePrice,
		RegionalFactor: price.RegionalFactor,
		FactorSource:   price.FactorSource,
		Region:         price.Region,
	}, http.StatusOK)
}

// handleSwitchRegion handles PUT /pricing/region
func (s *Server) handleSwitchRegion(w http.ResponseWriter, r *http.Request) {
	var req SwitchRegionRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		s.writeError(w, r, apperrors.Wrap(apperrors.TypeValidation, "invalid request body", err))
		return
	}
	if req.Region == "" {
		s.writeError(w, r, apperrors.Invalid("region is required"))
		return
	}

	engine := s.app.Engine
	if err := engine.SwitchRegion(r.Context(), req.Region); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, ReadyResponse{
		Ready:    engine.Ready(),
		Region:   engine.Region(),
		Snapshot: engine.Snapshot(),
	}, http.StatusOK)
}
