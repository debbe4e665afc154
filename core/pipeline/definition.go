// Package pipeline implements the cost aggregation shape every calculator
// follows: parse and validate, takeoff, material list, labor, overhead and
// assembly into a CalculationResult.
//
// Trades supply data (fields, takeoff formulas, material specs, overhead
// table) through a Definition. The numeric stages are pure functions of the
// inputs and the pricing state.
package pipeline

import (
	"github.com/shopspring/decimal"

	"buildcost/core/pricing"
	"buildcost/core/types"
)

// Field describes one raw input of a calculator
type Field struct {
	Name     string `json:"name"`
	Label    string `json:"label"`
	Unit     string `json:"unit,omitempty"`
	Default  any    `json:"default,omitempty"`
	Required bool   `json:"required,omitempty"`
}

// MaterialSpec is one material a trade requires for a given takeoff
type MaterialSpec struct {
	Name     string
	Category string
	Item     string
	Unit     string
	Quantity float64

	// Discrete goods are purchased whole and rounded up
	Discrete bool
}

// LaborSpec requests a labor line. A nil spec or a zero rate omits labor.
type LaborSpec struct {
	Trade            string
	Quantity         float64
	ProductivityRate decimal.Decimal
	Rate             decimal.Decimal
}

// OverheadItem is one row of a calculator's overhead table. For percent
// items Rate is a fraction of the subtotal (0.15 for 15%); for flat items
// it is the fee amount.
type OverheadItem struct {
	Name string
	Kind types.ChargeKind
	Rate decimal.Decimal
}

// Percent creates a percentage-of-subtotal overhead item. A non-finite
// percent yields a zero charge.
func Percent(name string, percent float64) OverheadItem {
	return OverheadItem{
		Name: name,
		Kind: types.ChargePercent,
		Rate: finiteDecimal(percent).Div(decimal.NewFromInt(100)),
	}
}

// Flat creates a fixed-fee overhead item. A non-finite amount yields a
// zero charge.
func Flat(name string, amount float64) OverheadItem {
	return OverheadItem{Name: name, Kind: types.ChargeFlat, Rate: finiteDecimal(amount)}
}

func finiteDecimal(v float64) decimal.Decimal {
	if !finite(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// Calculator is the type-erased view of a Definition
type Calculator interface {
	ID() string
	Title() string
	Fields() []Field

	// Validate parses raw inputs without touching pricing
	Validate(raw types.Inputs) error

	// Evaluate runs every numeric stage. The result has no timestamp.
	Evaluate(prices pricing.Resolver, raw types.Inputs) (*types.CalculationResult, error)
}

// Definition declares a calculator over a typed input record I
type Definition[I any] struct {
	CalculatorID string
	Name         string
	Inputs       []Field

	// Parse converts raw values into I or returns a VALIDATION_ERROR
	Parse func(raw types.Inputs) (I, error)

	// Takeoff computes physical quantities. Pure; no I/O.
	Takeoff func(in I) types.Quantities

	// Materials lists what to price for a takeoff
	Materials func(in I, q types.Quantities) []MaterialSpec

	// Labor is optional
	Labor func(in I, q types.Quantities) *LaborSpec

	// Overhead is optional; defaults to no overhead
	Overhead func(in I) []OverheadItem
}

var _ Calculator = (*Definition[struct{}])(nil)

// ID returns the calculator slug
func (d *Definition[I]) ID() string { return d.CalculatorID }

// Title returns the display title
func (d *Definition[I]) Title() string { return d.Name }

// Fields returns the input descriptors
func (d *Definition[I]) Fields() []Field { return d.Inputs }

// StaticOverhead returns an Overhead func that ignores the input
func StaticOverhead[I any](items ...OverheadItem) func(I) []OverheadItem {
	return func(I) []OverheadItem { return items }
}
