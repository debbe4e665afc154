package api

import (
	"time"

	"github.com/shopspring/decimal"

	"buildcost/core/pipeline"
	"buildcost/core/pricing"
	"buildcost/core/types"
)

// ErrorResponse is the error envelope every failing endpoint returns
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes one failure
type ErrorBody struct {
	Code      string       `json:"code"`
	Message   string       `json:"message"`
	Fields    []FieldError `json:"fields,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
}

// FieldError is one rejected input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// HealthResponse is returned by GET /health
type HealthResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

// ReadyResponse is returned by GET /ready
type ReadyResponse struct {
	Ready    bool             `json:"ready"`
	Region   string           `json:"region"`
	Snapshot pricing.Snapshot `json:"snapshot"`
}

// CalculatorInfo describes one registered calculator
type CalculatorInfo struct {
	ID     string           `json:"id"`
	Title  string           `json:"title"`
	Fields []pipeline.Field `json:"fields"`
}

// CalculatorsResponse is returned by GET /calculators
type CalculatorsResponse struct {
	Calculators []CalculatorInfo `json:"calculators"`
	CanCompute  bool             `json:"can_compute"`
}

// CalculateResponse is returned by POST /calculators/{id}/calculate
type CalculateResponse struct {
	Result    *types.CalculationResult `json:"result"`
	Persisted bool                     `json:"persisted"`
}

// PriceResponse is returned by GET /pricing/price
type PriceResponse struct {
	Category       string             `json:"category"`
	Item           string             `json:"item"`
	Unit           string             `json:"unit,omitempty"`
	UnitPrice      decimal.Decimal    `json:"unit_price"`
	BasePrice      decimal.Decimal    `json:"base_price"`
	RegionalFactor decimal.Decimal    `json:"regional_factor"`
	FactorSource   types.FactorSource `json:"factor_source"`
	Region         string             `json:"region"`
}

// SwitchRegionRequest is the body of PUT /pricing/region
type SwitchRegionRequest struct {
	Region string `json:"region"`
}
