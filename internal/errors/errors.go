// Package errors provides error handling utilities.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Type identifies the category of error
type Type string

const (
	// TypeValidation indicates a user-correctable input error
	TypeValidation Type = "VALIDATION_ERROR"

	// TypePricing indicates a price that could not be resolved
	TypePricing Type = "PRICING_ERROR"

	// TypeDataLoad indicates a catalog or factor set failed to fetch or parse
	TypeDataLoad Type = "DATA_LOAD_ERROR"

	// TypeStorage indicates a persistence failure
	TypeStorage Type = "STORAGE_ERROR"

	// TypeExport indicates an export failure
	TypeExport Type = "EXPORT_ERROR"

	// TypeNotReady indicates pricing data has not been loaded yet
	TypeNotReady Type = "NOT_READY"

	// TypeStale indicates a response was superseded by a newer request
	TypeStale Type = "STALE_RESPONSE"

	// TypeConfig indicates a configuration error
	TypeConfig Type = "CONFIG_ERROR"

	// TypeNotFound indicates a resource not found error
	TypeNotFound Type = "NOT_FOUND"

	// TypeInternal indicates an internal error
	TypeInternal Type = "INTERNAL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type                   `json:"type"`
	Message string                 `json:"message"`
	Cause   error                  `json:"-"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error is of a specific type
func (e *Error) Is(t Type) bool {
	return e.Type == t
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// IsType reports whether any error in the chain is of type t
func IsType(err error, t Type) bool {
	var e *Error
	for err != nil {
		if stderrors.As(err, &e) {
			if e.Type == t {
				return true
			}
			err = e.Cause
			continue
		}
		return false
	}
	return false
}

// TypeOf returns the type of the outermost domain error, or TypeInternal
func TypeOf(err error) Type {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Type
	}
	return TypeInternal
}

// FieldError is one failed input field
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Validation collects field failures for a single input record
type Validation struct {
	fields []FieldError
}

// Add records a failure for a field
func (v *Validation) Add(field, format string, args ...interface{}) {
	v.fields = append(v.fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Fields returns the recorded failures
func (v *Validation) Fields() []FieldError {
	return v.fields
}

// Err returns nil when nothing failed, otherwise a VALIDATION_ERROR listing every field
func (v *Validation) Err() error {
	if len(v.fields) == 0 {
		return nil
	}
	parts := make([]string, 0, len(v.fields))
	for _, f := range v.fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return New(TypeValidation, strings.Join(parts, "; ")).WithContext("fields", v.fields)
}

// FieldsOf extracts the field failures from a validation error
func FieldsOf(err error) []FieldError {
	var e *Error
	if !stderrors.As(err, &e) || e.Context == nil {
		return nil
	}
	fields, _ := e.Context["fields"].([]FieldError)
	return fields
}

// Invalid creates a validation error
func Invalid(message string) *Error {
	return New(TypeValidation, message)
}

// DataLoad creates a data load error
func DataLoad(message string, cause error) *Error {
	return Wrap(TypeDataLoad, message, cause)
}

// Storage creates a storage error
func Storage(message string, cause error) *Error {
	return Wrap(TypeStorage, message, cause)
}

// NotFound creates a not found error
func NotFound(resourceType, identifier string) *Error {
	return Newf(TypeNotFound, "%s not found: %s", resourceType, identifier)
}

// Internal creates an internal error
func Internal(message string, cause error) *Error {
	return Wrap(TypeInternal, message, cause)
}
