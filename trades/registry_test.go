package trades

import (
	"context"
	"reflect"
	"testing"

	"buildcost/adapters/fetch"
	"buildcost/core/pipeline"
	"buildcost/core/pricing"
	"buildcost/core/types"
	"buildcost/data"
	apperrors "buildcost/internal/errors"
	"buildcost/internal/logging"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	want := []string{"concrete-slab-pro", "earthwork-calculator", "roofing-calculator", "wall-framing"}
	if got := r.IDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	if _, err := r.Get("fence-calculator"); !apperrors.IsType(err, apperrors.TypeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
	if err := r.Register(r.All()[0]); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

// sampleInputs are minimal valid forms for each built-in calculator
var sampleInputs = map[string]types.Inputs{
	"concrete-slab-pro":    {"length": 20, "width": 10, "rebar": true, "vapor_barrier": true, "labor_rate": 55},
	"earthwork-calculator": {"length": 30, "width": 20, "depth": 4, "labor_rate": 90},
	"roofing-calculator":   {"length": 40, "width": 28, "tear_off": true, "labor_rate": 60},
	"wall-framing":         {"length": 24, "openings": 2, "corners": 2, "labor_rate": 50},
}

func TestEveryMaterialIsPricedInEveryRegion(t *testing.T) {
	regions, err := data.Regions(data.FS())
	if err != nil {
		t.Fatal(err)
	}

	for _, region := range regions {
		engine := pricing.NewEngine(fetch.NewFSFetcher(data.FS(), logging.NewNop()), nil, logging.NewNop())
		if err := engine.Init(context.Background(), region); err != nil {
			t.Fatalf("init %s: %v", region, err)
		}
		p := pipeline.New(engine, logging.NewNop())

		for _, calc := range Default().All() {
			t.Run(region+"/"+calc.ID(), func(t *testing.T) {
				result, err := p.Run(context.Background(), calc, sampleInputs[calc.ID()])
				if err != nil {
					t.Fatalf("run: %v", err)
				}
				if result.HasUnresolved() {
					t.Errorf("unresolved materials: %v", result.Warnings)
				}
				if result.Labor == nil {
					t.Error("expected a labor line")
				}
				if !result.Costs.Total.IsPositive() {
					t.Errorf("expected a positive total, got %s", result.Costs.Total)
				}
				if !result.Costs.Total.Equal(result.Costs.Subtotal.Add(result.Costs.OverheadTotal())) {
					t.Error("total must equal subtotal plus overhead")
				}
			})
		}
	}
}

func TestFieldDefaultsAreValid(t *testing.T) {
	for _, calc := range Default().All() {
		t.Run(calc.ID(), func(t *testing.T) {
			if err := calc.Validate(sampleInputs[calc.ID()]); err != nil {
				t.Errorf("sample inputs rejected: %v", err)
			}
			if err := calc.Validate(types.Inputs{}); len(apperrors.FieldsOf(err)) == 0 {
				t.Errorf("expected required-field failures for an empty form, got %v", err)
			}
		})
	}
}
