// Package earthwork prices excavation with haul-off and disposal
package earthwork

import (
	"math"

	"github.com/shopspring/decimal"

	"buildcost/core/pipeline"
	"buildcost/core/types"
)

// ID is the calculator slug
const ID = "earthwork-calculator"

// Input is a validated excavation request
type Input struct {
	Length        float64
	Width         float64
	Depth         float64
	Swell         float64
	TruckCapacity float64
	HaulOff       bool
	LaborRate     float64
}

// Calculator returns the excavation calculator definition
func Calculator() *pipeline.Definition[Input] {
	return &pipeline.Definition[Input]{
		CalculatorID: ID,
		Name:         "Excavation & Earthwork",
		Inputs: []pipeline.Field{
			{Name: "length", Label: "Length", Unit: "ft", Required: true},
			{Name: "width", Label: "Width", Unit: "ft", Required: true},
			{Name: "depth", Label: "Depth", Unit: "ft", Required: true},
			{Name: "swell", Label: "Swell factor", Unit: "%", Default: 25.0},
			{Name: "truck_capacity", Label: "Truck capacity", Unit: "cy", Default: 12.0},
			{Name: "haul_off", Label: "Haul off spoils", Default: true},
			{Name: "labor_rate", Label: "Operator rate", Unit: "$/hr", Default: 0.0},
		},
		Parse:     parse,
		Takeoff:   Takeoff,
		Materials: materials,
		Labor: func(in Input, q types.Quantities) *pipeline.LaborSpec {
			return &pipeline.LaborSpec{
				Trade:            "equipment operator",
				Quantity:         q["bank_cy"],
				ProductivityRate: decimal.NewFromInt(15),
				Rate:             decimal.NewFromFloat(in.LaborRate),
			}
		},
		Overhead: pipeline.StaticOverhead[Input](
			pipeline.Percent("Contractor markup", 15),
			pipeline.Percent("Profit", 10),
			pipeline.Flat("Grading permit", 200),
		),
	}
}

func parse(raw types.Inputs) (Input, error) {
	r := pipeline.NewFieldReader(raw)
	in := Input{
		Length:        r.Positive("length"),
		Width:         r.Positive("width"),
		Depth:         r.Range("depth", 0.1, 40),
		Swell:         r.Range("swell", 0, 100),
		TruckCapacity: r.Positive("truck_capacity"),
		HaulOff:       r.Bool("haul_off"),
		LaborRate:     r.NonNegative("labor_rate"),
	}
	return in, r.Err()
}

// Takeoff computes bank volume, loose volume after swell and truckloads
func Takeoff(in Input) types.Quantities {
	bank := in.Length * in.Width * in.Depth / 27
	loose := bank * (1 + in.Swell/100)
	q := types.Quantities{
		"area_sf":    in.Length * in.Width,
		"bank_cy":    bank,
		"loose_cy":   loose,
		"truckloads": 0,
	}
	if in.HaulOff {
		q["truckloads"] = math.Ceil(loose / in.TruckCapacity)
	}
	return q
}

func materials(in Input, q types.Quantities) []pipeline.MaterialSpec {
	specs := []pipeline.MaterialSpec{
		{Name: "Excavation", Category: "earthwork", Item: "excavation", Unit: "per_cubic_yard", Quantity: q["bank_cy"]},
	}
	if in.HaulOff {
		specs = append(specs,
			pipeline.MaterialSpec{Name: "Haul-off trucks", Category: "delivery", Item: "dump_truck", Unit: "per_load", Quantity: q["truckloads"], Discrete: true},
			pipeline.MaterialSpec{Name: "Disposal", Category: "earthwork", Item: "disposal_fee", Unit: "per_cubic_yard", Quantity: q["loose_cy"]},
		)
	}
	return specs
}
