// Package jobfile reads calculator inputs from HCL or JSON job files.
//
// A job file names the calculator and region and carries the raw form
// values, either in an inputs block or as top-level attributes:
//
//	calculator = "concrete-slab-pro"
//	region     = "west_coast"
//
//	inputs {
//	  length    = 20
//	  width     = 10
//	  thickness = 4
//	}
package jobfile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"

	"buildcost/core/types"
	apperrors "buildcost/internal/errors"
)

// Job is a parsed job file
type Job struct {
	Calculator string
	Region     string
	Inputs     types.Inputs
}

var schema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{
		{Name: "calculator"},
		{Name: "region"},
	},
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "inputs"},
	},
}

// Load reads and parses the job file at path
func Load(path string) (*Job, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.TypeValidation, err, "read job file %s", path)
	}
	return Parse(src, path)
}

// Parse decodes a job from src. The syntax is chosen by the filename
// extension: .json for JSON, anything else for HCL native syntax.
func Parse(src []byte, filename string) (*Job, error) {
	parser := hclparse.NewParser()

	var (
		file  *hcl.File
		diags hcl.Diagnostics
	)
	if strings.EqualFold(filepath.Ext(filename), ".json") {
		file, diags = parser.ParseJSON(src, filename)
	} else {
		file, diags = parser.ParseHCL(src, filename)
	}
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	content, remain, diags := file.Body.PartialContent(schema)
	if diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	job := &Job{Inputs: types.Inputs{}}
	if job.Calculator, diags = stringAttr(content.Attributes["calculator"]); diags.HasErrors() {
		return nil, diagError(filename, diags)
	}
	if job.Region, diags = stringAttr(content.Attributes["region"]); diags.HasErrors() {
		return nil, diagError(filename, diags)
	}

	bodies := []hcl.Body{remain}
	switch len(content.Blocks) {
	case 0:
	case 1:
		bodies = append(bodies, content.Blocks[0].Body)
	default:
		return nil, apperrors.Newf(apperrors.TypeValidation, "%s: only one inputs block is allowed", filename)
	}

	for _, body := range bodies {
		attrs, diags := body.JustAttributes()
		if diags.HasErrors() {
			return nil, diagError(filename, diags)
		}
		if err := collect(job.Inputs, attrs); err != nil {
			return nil, err
		}
	}
	return job, nil
}

func stringAttr(attr *hcl.Attribute) (string, hcl.Diagnostics) {
	if attr == nil {
		return "", nil
	}
	val, diags := attr.Expr.Value(nil)
	if diags.HasErrors() {
		return "", diags
	}
	v, err := goValue(val)
	if err != nil {
		return "", hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  fmt.Sprintf("Invalid %s", attr.Name),
			Detail:   err.Error(),
			Subject:  attr.Expr.Range().Ptr(),
		}}
	}
	s, _ := v.(string)
	return s, nil
}

func collect(into types.Inputs, attrs hcl.Attributes) error {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		attr := attrs[name]
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return diagError(attr.Range.Filename, diags)
		}
		v, err := goValue(val)
		if err != nil {
			return apperrors.Newf(apperrors.TypeValidation, "%s:%d: %s %v", attr.Range.Filename, attr.Range.Start.Line, name, err).
				WithContext("field", name)
		}
		if v != nil {
			into[name] = v
		}
	}
	return nil
}

func diagError(filename string, diags hcl.Diagnostics) error {
	msgs := make([]string, 0, len(diags))
	for _, d := range diags {
		if d.Severity != hcl.DiagError {
			continue
		}
		line := 0
		if d.Subject != nil {
			line = d.Subject.Start.Line
		}
		msg := fmt.Sprintf("%s:%d: %s", filename, line, d.Summary)
		if d.Detail != "" {
			msg += ": " + d.Detail
		}
		msgs = append(msgs, msg)
	}
	return apperrors.New(apperrors.TypeValidation, strings.Join(msgs, "; ")).
		WithContext("diagnostics", len(msgs))
}
