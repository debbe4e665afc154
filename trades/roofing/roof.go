// Package roofing prices an asphalt shingle roof over a gable footprint
package roofing

import (
	"math"

	"github.com/shopspring/decimal"

	"buildcost/core/pipeline"
	"buildcost/core/types"
)

// ID is the calculator slug
const ID = "roofing-calculator"

const (
	sfPerSquare          = 100.0
	bundlesPerSquare     = 3.0
	squaresPerRoll       = 4.0
	ridgeLfPerBundle     = 33.0
	dripEdgePieceLf      = 10.0
	squaresPerNailBox    = 16.0
	squaresInstalledHour = 0.5
)

// Input is a validated roofing request
type Input struct {
	Length    float64
	Width     float64
	Pitch     float64
	Overhang  float64
	Waste     float64
	LaborRate float64
	TearOff   bool
}

// Calculator returns the roofing calculator definition
func Calculator() *pipeline.Definition[Input] {
	return &pipeline.Definition[Input]{
		CalculatorID: ID,
		Name:         "Roofing",
		Inputs: []pipeline.Field{
			{Name: "length", Label: "Footprint length", Unit: "ft", Required: true},
			{Name: "width", Label: "Footprint width", Unit: "ft", Required: true},
			{Name: "pitch", Label: "Pitch", Unit: "in/12", Default: 6.0},
			{Name: "overhang", Label: "Eave overhang", Unit: "ft", Default: 1.0},
			{Name: "waste", Label: "Waste allowance", Unit: "%", Default: 10.0},
			{Name: "labor_rate", Label: "Roofer rate", Unit: "$/hr", Default: 0.0},
			{Name: "tear_off", Label: "Tear-off disposal", Default: false},
		},
		Parse:     parse,
		Takeoff:   Takeoff,
		Materials: materials,
		Labor: func(in Input, q types.Quantities) *pipeline.LaborSpec {
			return &pipeline.LaborSpec{
				Trade:            "roofer",
				Quantity:         q["squares"],
				ProductivityRate: decimal.NewFromFloat(squaresInstalledHour),
				Rate:             decimal.NewFromFloat(in.LaborRate),
			}
		},
		Overhead: overhead,
	}
}

func parse(raw types.Inputs) (Input, error) {
	r := pipeline.NewFieldReader(raw)
	in := Input{
		Length:    r.Positive("length"),
		Width:     r.Positive("width"),
		Pitch:     r.Range("pitch", 0, 24),
		Overhang:  r.Range("overhang", 0, 4),
		Waste:     r.Range("waste", 0, 50),
		LaborRate: r.NonNegative("labor_rate"),
		TearOff:   r.Bool("tear_off"),
	}
	return in, r.Err()
}

// Takeoff computes sloped roof area and the purchase units derived from it
func Takeoff(in Input) types.Quantities {
	runL := in.Length + 2*in.Overhang
	runW := in.Width + 2*in.Overhang
	plan := runL * runW
	slope := math.Sqrt(1 + math.Pow(in.Pitch/12, 2))
	roof := plan * slope
	withWaste := roof * (1 + in.Waste/100)
	squares := withWaste / sfPerSquare

	return types.Quantities{
		"plan_sf":      plan,
		"slope_factor": slope,
		"roof_sf":      roof,
		"squares":      squares,
		"bundles":      squares * bundlesPerSquare,
		"underlayment": squares / squaresPerRoll,
		"ridge_lf":     runL,
		"drip_edge_lf": 2 * (runL + runW),
		"nail_boxes":   squares / squaresPerNailBox,
	}
}

func materials(in Input, q types.Quantities) []pipeline.MaterialSpec {
	return []pipeline.MaterialSpec{
		{Name: "Architectural shingles", Category: "roofing", Item: "architectural_shingles", Unit: "per_bundle", Quantity: q["bundles"], Discrete: true},
		{Name: "Synthetic underlayment", Category: "roofing", Item: "synthetic_underlayment", Unit: "per_roll", Quantity: q["underlayment"], Discrete: true},
		{Name: "Ridge cap", Category: "roofing", Item: "ridge_cap", Unit: "per_bundle", Quantity: q["ridge_lf"] / ridgeLfPerBundle, Discrete: true},
		{Name: "Drip edge", Category: "roofing", Item: "drip_edge", Unit: "per_piece", Quantity: q["drip_edge_lf"] / dripEdgePieceLf, Discrete: true},
		{Name: "Coil nails", Category: "roofing", Item: "coil_nails", Unit: "per_box", Quantity: q["nail_boxes"], Discrete: true},
	}
}

func overhead(in Input) []pipeline.OverheadItem {
	items := []pipeline.OverheadItem{
		pipeline.Percent("Contractor markup", 15),
		pipeline.Percent("Profit", 10),
		pipeline.Flat("Permit", 250),
	}
	if in.TearOff {
		items = append(items, pipeline.Flat("Dumpster & disposal", 450))
	}
	return items
}
