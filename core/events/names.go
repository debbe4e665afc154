package events

import "buildcost/core/types"

// Name identifies an event. The set below is a cross-component contract.
type Name string

const (
	CalculatorLoaded              Name = "calculator-loaded"
	CalculatorCalculatedStarted   Name = "calculator-calculated-started"
	CalculatorCalculatedCompleted Name = "calculator-calculated-completed"
	CalculatorCalculatedError     Name = "calculator-calculated-error"
	FormChanged                   Name = "form-changed"
	FormValidated                 Name = "form-validated"
	DataLoaded                    Name = "data-loaded"
	DataError                     Name = "data-error"
	PricingUpdated                Name = "pricing-updated"
	ResultsUpdated                Name = "results-updated"
	ExportStarted                 Name = "export-started"
	ExportCompleted               Name = "export-completed"
	ExportError                   Name = "export-error"
)

// Vocabulary lists every event name in a stable order
func Vocabulary() []Name {
	return []Name{
		CalculatorLoaded,
		CalculatorCalculatedStarted,
		CalculatorCalculatedCompleted,
		CalculatorCalculatedError,
		FormChanged,
		FormValidated,
		DataLoaded,
		DataError,
		PricingUpdated,
		ResultsUpdated,
		ExportStarted,
		ExportCompleted,
		ExportError,
	}
}

// PricingPayload accompanies PricingUpdated and DataLoaded
type PricingPayload struct {
	Region string
}

// DataErrorPayload accompanies DataError
type DataErrorPayload struct {
	Operation string
	Region    string
	Err       error
}

// CalculatorPayload accompanies calculator lifecycle and ResultsUpdated
type CalculatorPayload struct {
	CalculatorID string
	Result       *types.CalculationResult
	Err          error
}

// FormPayload accompanies FormChanged and FormValidated
type FormPayload struct {
	CalculatorID string
	Field        string
	Value        any
	Valid        bool
	Err          error
}

// ExportPayload accompanies the export lifecycle
type ExportPayload struct {
	CalculatorID string
	Format       string
	Bytes        int
	Err          error
}
