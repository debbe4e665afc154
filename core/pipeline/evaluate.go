package pipeline

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"buildcost/core/pricing"
	"buildcost/core/types"
	apperrors "buildcost/internal/errors"
)

// discreteTolerance absorbs float noise before rounding purchased units up,
// so 3.0000000000000004 bundles stays 3
const discreteTolerance = 6

// Validate parses raw inputs without touching pricing
func (d *Definition[I]) Validate(raw types.Inputs) error {
	_, _, err := d.parse(raw)
	return err
}

// Evaluate runs parse, takeoff, materials, labor and overhead
func (d *Definition[I]) Evaluate(prices pricing.Resolver, raw types.Inputs) (*types.CalculationResult, error) {
	in, effective, err := d.parse(raw)
	if err != nil {
		return nil, err
	}
	if prices == nil || !prices.Ready() {
		return nil, apperrors.New(apperrors.TypeNotReady, "pricing data not loaded")
	}

	quantities := d.Takeoff(in)
	for _, name := range quantities.Keys() {
		if !finite(quantities[name]) {
			return nil, apperrors.Newf(apperrors.TypeValidation, "takeoff produced a non-finite %s", name)
		}
	}

	var specs []MaterialSpec
	if d.Materials != nil {
		specs = d.Materials(in, quantities)
	}
	materials, warnings, err := priceMaterials(prices, specs)
	if err != nil {
		return nil, err
	}

	var labor *types.LaborLine
	if d.Labor != nil {
		var warning string
		labor, warning = laborLine(d.Labor(in, quantities))
		if warning != "" {
			warnings = append(warnings, warning)
		}
	}

	var overhead []OverheadItem
	if d.Overhead != nil {
		overhead = d.Overhead(in)
	}

	return &types.CalculationResult{
		CalculatorID: d.CalculatorID,
		Title:        d.Name,
		Region:       prices.Region(),
		Inputs:       effective,
		Takeoff:      quantities,
		Materials:    materials,
		Labor:        labor,
		Costs:        Breakdown(materials, labor, overhead),
		Warnings:     warnings,
	}, nil
}

func (d *Definition[I]) parse(raw types.Inputs) (I, types.Inputs, error) {
	var zero I
	effective := d.withDefaults(raw)

	var v apperrors.Validation
	for _, f := range d.Inputs {
		if f.Required && !effective.Has(f.Name) {
			v.Add(f.Name, "is required")
		}
	}
	if err := v.Err(); err != nil {
		return zero, effective, err
	}

	in, err := d.Parse(effective)
	if err != nil {
		if !apperrors.IsType(err, apperrors.TypeValidation) {
			err = apperrors.Wrap(apperrors.TypeValidation, "invalid input", err)
		}
		return zero, effective, err
	}
	return in, effective, nil
}

func (d *Definition[I]) withDefaults(raw types.Inputs) types.Inputs {
	effective := raw.Clone()
	for _, f := range d.Inputs {
		if f.Default != nil && !effective.Has(f.Name) {
			effective[f.Name] = f.Default
		}
	}
	return effective
}

func priceMaterials(prices pricing.Resolver, specs []MaterialSpec) ([]types.MaterialLineItem, []string, error) {
	var (
		lines    []types.MaterialLineItem
		warnings []string
	)
	for _, spec := range specs {
		if !finite(spec.Quantity) || spec.Quantity <= 0 {
			continue
		}
		qty := decimal.NewFromFloat(spec.Quantity)
		if spec.Discrete {
			qty = qty.Round(discreteTolerance).Ceil()
		}

		price, err := prices.Resolve(spec.Category, spec.Item, spec.Unit)
		if err != nil {
			if apperrors.IsType(err, apperrors.TypeNotReady) {
				return nil, nil, err
			}
			lines = append(lines, types.MaterialLineItem{
				Name:           spec.Name,
				Category:       spec.Category,
				Item:           spec.Item,
				Quantity:       qty,
				Unit:           spec.Unit,
				UnitPrice:      decimal.Zero,
				Cost:           decimal.Zero,
				BasePrice:      decimal.Zero,
				RegionalFactor: decimal.Zero,
				Unresolved:     true,
			})
			warnings = append(warnings, fmt.Sprintf("%s: no price for %s.%s (%s), costed at zero", spec.Name, spec.Category, spec.Item, spec.Unit))
			continue
		}

		line := types.NewMaterialLineItem(spec.Name, spec.Unit, qty, price)
		line.Category = spec.Category
		line.Item = spec.Item
		lines = append(lines, line)
	}
	return lines, warnings, nil
}

func laborLine(spec *LaborSpec) (*types.LaborLine, string) {
	if spec == nil || !spec.Rate.IsPositive() {
		return nil, ""
	}
	if !finite(spec.Quantity) {
		return nil, fmt.Sprintf("labor omitted: %s quantity is not a finite number", spec.Trade)
	}
	if spec.Quantity <= 0 {
		return nil, ""
	}
	if !spec.ProductivityRate.IsPositive() {
		return nil, fmt.Sprintf("labor omitted: %s productivity rate is not set", spec.Trade)
	}
	qty := decimal.NewFromFloat(spec.Quantity)
	hours := qty.Div(spec.ProductivityRate)
	return &types.LaborLine{
		Trade:            spec.Trade,
		Quantity:         qty,
		ProductivityRate: spec.ProductivityRate,
		Hours:            hours,
		Rate:             spec.Rate,
		Cost:             hours.Mul(spec.Rate),
	}, ""
}

// Breakdown layers overhead on materials plus labor. Every charge is taken
// against the same subtotal; charges never compound.
func Breakdown(materials []types.MaterialLineItem, labor *types.LaborLine, overhead []OverheadItem) types.CostBreakdown {
	b := types.CostBreakdown{
		Materials: decimal.Zero,
		Labor:     decimal.Zero,
		Overhead:  []types.OverheadCharge{},
	}
	for _, m := range materials {
		b.Materials = b.Materials.Add(m.Cost)
	}
	if labor != nil {
		b.Labor = labor.Cost
	}
	b.Subtotal = b.Materials.Add(b.Labor)

	for _, item := range overhead {
		amount := item.Rate
		if item.Kind == types.ChargePercent {
			amount = b.Subtotal.Mul(item.Rate)
		}
		b.Overhead = append(b.Overhead, types.OverheadCharge{
			Name:   item.Name,
			Kind:   item.Kind,
			Rate:   item.Rate,
			Amount: amount,
		})
	}
	b.Total = b.Subtotal.Add(b.OverheadTotal())
	return b
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
