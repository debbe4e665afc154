// Package types - Cost aggregation data model
package types

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Quantities is the named output of a takeoff (areas, volumes, counts)
type Quantities map[string]float64

// Keys returns the quantity names in sorted order
func (q Quantities) Keys() []string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MaterialLineItem is one priced row of a material list
type MaterialLineItem struct {
	Name           string          `json:"name"`
	Category       string          `json:"category"`
	Item           string          `json:"item"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	Cost           decimal.Decimal `json:"cost"`
	BasePrice      decimal.Decimal `json:"base_price"`
	RegionalFactor decimal.Decimal `json:"regional_factor"`

	// Unresolved marks a line whose price could not be found. Its cost is zero.
	Unresolved bool `json:"unresolved,omitempty"`
}

// NewMaterialLineItem builds a line item with Cost = Quantity * UnitPrice
func NewMaterialLineItem(name, unit string, quantity decimal.Decimal, price ResolvedPrice) MaterialLineItem {
	return MaterialLineItem{
		Name:           name,
		Quantity:       quantity,
		Unit:           unit,
		UnitPrice:      price.UnitPrice,
		Cost:           quantity.Mul(price.UnitPrice),
		BasePrice:      price.BasePrice,
		RegionalFactor: price.RegionalFactor,
	}
}

// LaborLine is the optional labor component of a calculation
type LaborLine struct {
	Trade            string          `json:"trade"`
	Quantity         decimal.Decimal `json:"quantity"`
	ProductivityRate decimal.Decimal `json:"productivity_rate"`
	Hours            decimal.Decimal `json:"hours"`
	Rate             decimal.Decimal `json:"rate"`
	Cost             decimal.Decimal `json:"cost"`
}

// ChargeKind distinguishes percentage charges from flat fees
type ChargeKind string

const (
	ChargePercent ChargeKind = "percent"
	ChargeFlat    ChargeKind = "flat"
)

// OverheadCharge is one applied overhead layer
type OverheadCharge struct {
	Name   string          `json:"name"`
	Kind   ChargeKind      `json:"kind"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// CostBreakdown is the layered cost summary.
// Subtotal = Materials + Labor; Total = Subtotal + sum(Overhead).
type CostBreakdown struct {
	Materials decimal.Decimal  `json:"materials"`
	Labor     decimal.Decimal  `json:"labor"`
	Subtotal  decimal.Decimal  `json:"subtotal"`
	Overhead  []OverheadCharge `json:"overhead_items"`
	Total     decimal.Decimal  `json:"total"`
}

// OverheadTotal sums every overhead charge
func (b CostBreakdown) OverheadTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, c := range b.Overhead {
		sum = sum.Add(c.Amount)
	}
	return sum
}

// CalculationResult is the unit of persistence and export
type CalculationResult struct {
	CalculatorID string             `json:"calculator_id"`
	Title        string             `json:"title"`
	Region       string             `json:"region"`
	Inputs       Inputs             `json:"inputs"`
	Takeoff      Quantities         `json:"takeoff"`
	Materials    []MaterialLineItem `json:"materials"`
	Labor        *LaborLine         `json:"labor,omitempty"`
	Costs        CostBreakdown      `json:"costs"`
	Warnings     []string           `json:"warnings,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
}

// HasUnresolved reports whether any line item fell back to a zero price
func (r *CalculationResult) HasUnresolved() bool {
	for _, m := range r.Materials {
		if m.Unresolved {
			return true
		}
	}
	return false
}

// PersistedCalculatorState is stored under <prefix><calculatorId>
type PersistedCalculatorState struct {
	CalculatorID string             `json:"calculator_id"`
	Inputs       Inputs             `json:"inputs"`
	LastResult   *CalculationResult `json:"last_result,omitempty"`
}
