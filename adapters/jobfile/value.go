package jobfile

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// goValue converts a scalar cty value to the types calculators accept.
// Null becomes nil. Unknown values and collections are rejected.
func goValue(val cty.Value) (any, error) {
	if !val.IsKnown() {
		return nil, fmt.Errorf("is not known")
	}
	if val.IsNull() {
		return nil, nil
	}

	switch val.Type() {
	case cty.String:
		return val.AsString(), nil
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return f, nil
	case cty.Bool:
		return val.True(), nil
	default:
		return nil, fmt.Errorf("must be a number, string or bool, got %s", val.Type().FriendlyName())
	}
}
