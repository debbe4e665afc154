package pipeline

import (
	"math"
	"strings"

	"buildcost/core/types"
	apperrors "buildcost/internal/errors"
)

// maxCount bounds whole-number fields so they convert to int on every platform
const maxCount = math.MaxInt32

// FieldReader parses raw inputs and collects every failure, so a form
// reports all bad fields at once
type FieldReader struct {
	raw types.Inputs
	v   apperrors.Validation
}

// NewFieldReader creates a reader over raw
func NewFieldReader(raw types.Inputs) *FieldReader {
	return &FieldReader{raw: raw}
}

// Positive reads a number greater than zero
func (r *FieldReader) Positive(key string) float64 {
	f, err := r.raw.Float(key)
	if err != nil {
		r.v.Add(key, "%s", err.Error())
		return 0
	}
	if f <= 0 {
		r.v.Add(key, "must be greater than zero")
		return 0
	}
	return f
}

// NonNegative reads a number that may be zero; absent means zero
func (r *FieldReader) NonNegative(key string) float64 {
	f, err := r.raw.FloatOr(key, 0)
	if err != nil {
		r.v.Add(key, "%s", err.Error())
		return 0
	}
	if f < 0 {
		r.v.Add(key, "must not be negative")
		return 0
	}
	return f
}

// Range reads a number within [min, max]
func (r *FieldReader) Range(key string, min, max float64) float64 {
	f, err := r.raw.Float(key)
	if err != nil {
		r.v.Add(key, "%s", err.Error())
		return 0
	}
	if f < min || f > max {
		r.v.Add(key, "must be between %g and %g", min, max)
		return 0
	}
	return f
}

// Count reads a non-negative whole number
func (r *FieldReader) Count(key string) int {
	f := r.NonNegative(key)
	if f > maxCount {
		r.v.Add(key, "must be at most %d", maxCount)
		return 0
	}
	if f != math.Trunc(f) {
		r.v.Add(key, "must be a whole number")
		return 0
	}
	return int(f)
}

// Bool reads a flag; absent means false
func (r *FieldReader) Bool(key string) bool {
	b, err := r.raw.Bool(key)
	if err != nil {
		r.v.Add(key, "%s", err.Error())
	}
	return b
}

// Choice reads one of options, matching case-insensitively
func (r *FieldReader) Choice(key string, options ...string) string {
	s := r.raw.String(key, "")
	for _, o := range options {
		if strings.EqualFold(s, o) {
			return o
		}
	}
	r.v.Add(key, "must be one of %s", strings.Join(options, ", "))
	return ""
}

// Fail records a cross-field failure
func (r *FieldReader) Fail(key, format string, args ...interface{}) {
	r.v.Add(key, format, args...)
}

// Err returns the collected VALIDATION_ERROR, or nil
func (r *FieldReader) Err() error {
	return r.v.Err()
}
