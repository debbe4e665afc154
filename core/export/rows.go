// Package export turns a CalculationResult into rows and hands them to a
// format encoder. Encoders only see rows; they know nothing about trades.
package export

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"buildcost/core/types"
)

// Row is one exported line. Cells are string or float64.
type Row []any

// Title returns the document title for a result
func Title(result *types.CalculationResult) string {
	if result.Title != "" {
		return result.Title + " Estimate"
	}
	return result.CalculatorID + " estimate"
}

// Rows flattens a result: header, takeoff, materials, labor, cost summary
// and warnings. Currency is rounded to cents here and nowhere earlier.
func Rows(result *types.CalculationResult) []Row {
	rows := []Row{
		{"Calculator", result.CalculatorID},
		{"Region", result.Region},
		{"Generated", result.Timestamp.UTC().Format(time.RFC3339)},
		{},
		{"Takeoff", "Quantity"},
	}
	for _, name := range result.Takeoff.Keys() {
		rows = append(rows, Row{name, roundQty(result.Takeoff[name])})
	}

	rows = append(rows, Row{}, Row{"Material", "Quantity", "Unit", "Unit Price", "Cost"})
	for _, m := range result.Materials {
		name := m.Name
		if m.Unresolved {
			name += " (unpriced)"
		}
		rows = append(rows, Row{name, qty(m.Quantity), m.Unit, money(m.UnitPrice), money(m.Cost)})
	}
	if l := result.Labor; l != nil {
		rows = append(rows, Row{fmt.Sprintf("Labor (%s)", l.Trade), qty(l.Hours), "hours", money(l.Rate), money(l.Cost)})
	}

	c := result.Costs
	rows = append(rows,
		Row{},
		Row{"Materials", money(c.Materials)},
		Row{"Labor", money(c.Labor)},
		Row{"Subtotal", money(c.Subtotal)},
	)
	for _, o := range c.Overhead {
		label := o.Name
		if o.Kind == types.ChargePercent {
			label = fmt.Sprintf("%s (%s%%)", o.Name, o.Rate.Shift(2).String())
		}
		rows = append(rows, Row{label, money(o.Amount)})
	}
	rows = append(rows, Row{"Total", money(c.Total)})

	if len(result.Warnings) > 0 {
		rows = append(rows, Row{})
		for _, w := range result.Warnings {
			rows = append(rows, Row{"Warning", w})
		}
	}
	return rows
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

func qty(d decimal.Decimal) float64 {
	return d.Round(3).InexactFloat64()
}

func roundQty(v float64) float64 {
	return decimal.NewFromFloat(v).Round(3).InexactFloat64()
}
