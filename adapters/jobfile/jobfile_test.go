package jobfile

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"buildcost/core/types"
	apperrors "buildcost/internal/errors"
)

func TestParseHCL(t *testing.T) {
	src := `
calculator = "concrete-slab-pro"
region     = "west_coast"

inputs {
  length    = 20
  width     = 10
  thickness = 4
  rebar     = true
  strength  = "4000"
  waste     = 2 + 3
}
`
	job, err := Parse([]byte(src), "slab.hcl")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if job.Calculator != "concrete-slab-pro" || job.Region != "west_coast" {
		t.Errorf("unexpected header %+v", job)
	}
	want := types.Inputs{"length": 20.0, "width": 10.0, "thickness": 4.0, "rebar": true, "strength": "4000", "waste": 5.0}
	if !reflect.DeepEqual(job.Inputs, want) {
		t.Errorf("expected %v, got %v", want, job.Inputs)
	}
}

func TestParseTopLevelAttributes(t *testing.T) {
	job, err := Parse([]byte("length = 30\nwidth = 20\ndepth = 4\n"), "dig.hcl")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if job.Calculator != "" || len(job.Inputs) != 3 || job.Inputs["depth"] != 4.0 {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestParseJSON(t *testing.T) {
	src := `{"calculator": "roofing-calculator", "inputs": {"length": 40, "width": 28, "tear_off": true}}`
	job, err := Parse([]byte(src), "roof.json")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if job.Calculator != "roofing-calculator" || job.Inputs["length"] != 40.0 || job.Inputs["tear_off"] != true {
		t.Errorf("unexpected job %+v", job)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		src      string
		contains string
	}{
		{"syntax", "bad.hcl", "length = \n", "bad.hcl:"},
		{"variable reference", "vars.hcl", "length = var.length\n", "vars.hcl:1"},
		{"list value", "list.hcl", "length = [1, 2]\n", "list.hcl:1: length must be a number"},
		{"two inputs blocks", "twice.hcl", "inputs {\n}\ninputs {\n}\n", "only one inputs block"},
		{"bad json", "bad.json", `{"length": }`, "bad.json:1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src), tt.filename)
			if !apperrors.IsType(err, apperrors.TypeValidation) {
				t.Fatalf("expected VALIDATION_ERROR, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.contains) {
				t.Errorf("expected %q in %q", tt.contains, err.Error())
			}
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wall.hcl")
	if err := os.WriteFile(path, []byte("calculator = \"wall-framing\"\nlength = 24\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	job, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if job.Calculator != "wall-framing" || job.Inputs["length"] != 24.0 {
		t.Errorf("unexpected job %+v", job)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.hcl")); err == nil {
		t.Error("expected error for missing file")
	}
}
