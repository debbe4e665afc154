// Package concrete prices flat-work slabs: ready-mix, delivery, forms and
// optional rebar grid.
package concrete

import (
	"math"

	"github.com/shopspring/decimal"

	"buildcost/core/pipeline"
	"buildcost/core/types"
)

// ID is the calculator slug
const ID = "concrete-slab-pro"

const (
	truckCapacityCY  = 10.0
	stickLengthFt    = 20.0
	rebarLapFactor   = 1.1
	finishSFPerHour  = 40.0
	cubicFeetPerYard = 27.0
)

// Input is a validated slab request
type Input struct {
	Length       float64
	Width        float64
	Thickness    float64
	Waste        float64
	Strength     string
	Rebar        bool
	RebarSpacing float64
	VaporBarrier bool
	LaborRate    float64
	Permit       bool
}

// Calculator returns the slab calculator definition
func Calculator() *pipeline.Definition[Input] {
	return &pipeline.Definition[Input]{
		CalculatorID: ID,
		Name:         "Concrete Slab",
		Inputs: []pipeline.Field{
			{Name: "length", Label: "Length", Unit: "ft", Required: true},
			{Name: "width", Label: "Width", Unit: "ft", Required: true},
			{Name: "thickness", Label: "Thickness", Unit: "in", Default: 4.0},
			{Name: "waste", Label: "Waste allowance", Unit: "%", Default: 5.0},
			{Name: "strength", Label: "Mix strength", Unit: "psi", Default: "4000"},
			{Name: "rebar", Label: "Rebar grid", Default: false},
			{Name: "rebar_spacing", Label: "Rebar spacing", Unit: "in", Default: 12.0},
			{Name: "vapor_barrier", Label: "Vapor barrier", Default: false},
			{Name: "labor_rate", Label: "Finisher rate", Unit: "$/hr", Default: 0.0},
			{Name: "permit", Label: "Include permit", Default: true},
		},
		Parse:     parse,
		Takeoff:   Takeoff,
		Materials: materials,
		Labor:     labor,
		Overhead:  overhead,
	}
}

func parse(raw types.Inputs) (Input, error) {
	r := pipeline.NewFieldReader(raw)
	in := Input{
		Length:       r.Positive("length"),
		Width:        r.Positive("width"),
		Thickness:    r.Range("thickness", 2, 24),
		Waste:        r.Range("waste", 0, 50),
		Strength:     r.Choice("strength", "3000", "4000"),
		Rebar:        r.Bool("rebar"),
		RebarSpacing: r.Range("rebar_spacing", 6, 36),
		VaporBarrier: r.Bool("vapor_barrier"),
		LaborRate:    r.NonNegative("labor_rate"),
		Permit:       r.Bool("permit"),
	}
	return in, r.Err()
}

// Takeoff computes slab volume, truckloads, forms and rebar length
func Takeoff(in Input) types.Quantities {
	area := in.Length * in.Width
	volume := area * (in.Thickness / 12) / cubicFeetPerYard
	withWaste := volume * (1 + in.Waste/100)

	q := types.Quantities{
		"area_sf":           area,
		"perimeter_lf":      2 * (in.Length + in.Width),
		"volume_cy":         volume,
		"volume_with_waste": withWaste,
		"trucks":            math.Ceil(withWaste / truckCapacityCY),
		"rebar_lf":          0,
	}
	if in.Rebar {
		alongLength := math.Floor(in.Width*12/in.RebarSpacing) + 1
		alongWidth := math.Floor(in.Length*12/in.RebarSpacing) + 1
		q["rebar_lf"] = alongLength*in.Length + alongWidth*in.Width
	}
	return q
}

func materials(in Input, q types.Quantities) []pipeline.MaterialSpec {
	specs := []pipeline.MaterialSpec{
		{Name: "Ready-mix concrete (" + in.Strength + " psi)", Category: "concrete", Item: "ready_mix_" + in.Strength + "psi", Unit: "per_cubic_yard", Quantity: q["volume_with_waste"]},
		{Name: "Delivery", Category: "delivery", Item: "concrete_truck", Unit: "per_load", Quantity: q["trucks"], Discrete: true},
		{Name: "Form boards", Category: "lumber", Item: "form_2x4", Unit: "per_linear_foot", Quantity: q["perimeter_lf"]},
		{Name: "#4 rebar", Category: "steel", Item: "rebar_4", Unit: "per_stick", Quantity: q["rebar_lf"] * rebarLapFactor / stickLengthFt, Discrete: true},
	}
	if in.VaporBarrier {
		specs = append(specs, pipeline.MaterialSpec{
			Name: "Vapor barrier", Category: "concrete", Item: "vapor_barrier", Unit: "per_roll", Quantity: q["area_sf"] / 1000, Discrete: true,
		})
	}
	return specs
}

func labor(in Input, q types.Quantities) *pipeline.LaborSpec {
	return &pipeline.LaborSpec{
		Trade:            "concrete finisher",
		Quantity:         q["area_sf"],
		ProductivityRate: decimal.NewFromFloat(finishSFPerHour),
		Rate:             decimal.NewFromFloat(in.LaborRate),
	}
}

func overhead(in Input) []pipeline.OverheadItem {
	items := []pipeline.OverheadItem{
		pipeline.Percent("Contractor markup", 15),
		pipeline.Percent("Profit", 10),
		pipeline.Percent("Bond & insurance", 2.5),
	}
	if in.Permit {
		items = append(items, pipeline.Flat("Permit", 150))
	}
	return items
}
