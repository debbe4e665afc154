// Package types - Raw calculator inputs
package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	errRequired  = errors.New("is required")
	errNotNumber = errors.New("must be a number")
	errNotFinite = errors.New("must be a finite number")
	errNotBool   = errors.New("must be true or false")
)

// Inputs holds raw form values keyed by field name. Values arrive as
// strings from forms and flags, or as numbers and bools from JSON and HCL.
type Inputs map[string]any

// Clone returns a shallow copy
func (in Inputs) Clone() Inputs {
	out := make(Inputs, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Has reports whether a non-empty value is present for key
func (in Inputs) Has(key string) bool {
	v, ok := in[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Float parses key as a finite number
func (in Inputs) Float(key string) (float64, error) {
	f, err := in.number(key)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errNotFinite
	}
	return f, nil
}

func (in Inputs) number(key string) (float64, error) {
	v, ok := in[key]
	if !ok || v == nil {
		return 0, errRequired
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, errNotNumber
		}
		return f, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, errRequired
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errNotNumber
		}
		return f, nil
	default:
		return 0, errNotNumber
	}
}

// FloatOr parses key as a number, returning def when absent
func (in Inputs) FloatOr(key string, def float64) (float64, error) {
	if !in.Has(key) {
		return def, nil
	}
	return in.Float(key)
}

// String returns key as a trimmed string, or def when absent
func (in Inputs) String(key, def string) string {
	if !in.Has(key) {
		return def
	}
	switch v := in[key].(type) {
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}

// Bool parses key as a boolean; absent means false
func (in Inputs) Bool(key string) (bool, error) {
	if !in.Has(key) {
		return false, nil
	}
	switch v := in[key].(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
	case float64:
		return v != 0, nil
	}
	return false, errNotBool
}
