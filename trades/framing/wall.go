// Package framing prices a stick-framed 2x4 wall
package framing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"buildcost/core/pipeline"
	"buildcost/core/types"
)

// ID is the calculator slug
const ID = "wall-framing"

const (
	plateBoardLf    = 16.0
	sheetSF         = 32.0
	anchorSpacingFt = 6.0
	sfPerNailBox    = 400.0
	framedLfPerHour = 10.0
)

// Input is a validated wall request
type Input struct {
	Length       float64
	Height       float64
	StudSpacing  float64
	Openings     int
	OpeningWidth float64
	Corners      int
	Sheathing    bool
	Waste        float64
	LaborRate    float64
}

// Calculator returns the wall framing calculator definition
func Calculator() *pipeline.Definition[Input] {
	return &pipeline.Definition[Input]{
		CalculatorID: ID,
		Name:         "Wall Framing",
		Inputs: []pipeline.Field{
			{Name: "length", Label: "Wall length", Unit: "ft", Required: true},
			{Name: "height", Label: "Wall height", Unit: "ft", Default: 8.0},
			{Name: "stud_spacing", Label: "Stud spacing", Unit: "in", Default: 16.0},
			{Name: "openings", Label: "Door/window openings", Default: 0.0},
			{Name: "opening_width", Label: "Average opening width", Unit: "ft", Default: 3.0},
			{Name: "corners", Label: "Corners", Default: 0.0},
			{Name: "sheathing", Label: "OSB sheathing", Default: true},
			{Name: "waste", Label: "Waste allowance", Unit: "%", Default: 10.0},
			{Name: "labor_rate", Label: "Framer rate", Unit: "$/hr", Default: 0.0},
		},
		Parse:     parse,
		Takeoff:   Takeoff,
		Materials: materials,
		Labor: func(in Input, q types.Quantities) *pipeline.LaborSpec {
			return &pipeline.LaborSpec{
				Trade:            "framer",
				Quantity:         in.Length,
				ProductivityRate: decimal.NewFromFloat(framedLfPerHour),
				Rate:             decimal.NewFromFloat(in.LaborRate),
			}
		},
		Overhead: pipeline.StaticOverhead[Input](
			pipeline.Percent("Contractor markup", 15),
			pipeline.Percent("Profit", 10),
		),
	}
}

func parse(raw types.Inputs) (Input, error) {
	r := pipeline.NewFieldReader(raw)
	in := Input{
		Length:       r.Positive("length"),
		Height:       r.Range("height", 4, 12),
		StudSpacing:  r.Range("stud_spacing", 12, 24),
		Openings:     r.Count("openings"),
		OpeningWidth: r.Range("opening_width", 1, 16),
		Corners:      r.Count("corners"),
		Sheathing:    r.Bool("sheathing"),
		Waste:        r.Range("waste", 0, 50),
		LaborRate:    r.NonNegative("labor_rate"),
	}
	if in.Length > 0 && float64(in.Openings)*in.OpeningWidth >= in.Length {
		r.Fail("openings", "total opening width must be less than the wall length")
	}
	return in, r.Err()
}

// Takeoff computes studs, plates, headers and sheathing
func Takeoff(in Input) types.Quantities {
	openingWidth := float64(in.Openings) * in.OpeningWidth
	studs := math.Floor(in.Length*12/in.StudSpacing) + 1 + 2*float64(in.Openings) + 2*float64(in.Corners)
	sheathing := in.Length*in.Height - openingWidth*in.Height*0.5

	q := types.Quantities{
		"wall_sf":      in.Length * in.Height,
		"studs":        studs,
		"plates_lf":    3 * in.Length,
		"headers_lf":   2 * float64(in.Openings) * (in.OpeningWidth + 0.5),
		"anchor_bolts": math.Floor(in.Length/anchorSpacingFt) + 1,
		"sheathing_sf": 0,
	}
	if in.Sheathing {
		q["sheathing_sf"] = sheathing
	}
	return q
}

func studItem(height float64) string {
	switch {
	case height <= 8:
		return "stud_2x4_8ft"
	case height <= 10:
		return "stud_2x4_10ft"
	default:
		return "stud_2x4_12ft"
	}
}

func materials(in Input, q types.Quantities) []pipeline.MaterialSpec {
	waste := 1 + in.Waste/100
	return []pipeline.MaterialSpec{
		{Name: fmt.Sprintf("2x4 studs (%s)", studItem(in.Height)), Category: "lumber", Item: studItem(in.Height), Unit: "each", Quantity: q["studs"] * waste, Discrete: true},
		{Name: "2x4 plates, 16 ft", Category: "lumber", Item: "plate_2x4_16ft", Unit: "each", Quantity: q["plates_lf"] * waste / plateBoardLf, Discrete: true},
		{Name: "2x10 headers", Category: "lumber", Item: "header_2x10", Unit: "per_linear_foot", Quantity: q["headers_lf"]},
		{Name: "Anchor bolts", Category: "hardware", Item: "anchor_bolt", Unit: "each", Quantity: q["anchor_bolts"], Discrete: true},
		{Name: "OSB sheathing 7/16", Category: "sheathing", Item: "osb_7_16", Unit: "per_sheet", Quantity: q["sheathing_sf"] * waste / sheetSF, Discrete: true},
		{Name: "Framing nails", Category: "hardware", Item: "framing_nails", Unit: "per_box", Quantity: q["wall_sf"] / sfPerNailBox, Discrete: true},
	}
}
