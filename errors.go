package sqlupsert

import (
	"errors"
	"fmt"
	"strings"

	"github.com/syssam/sqlupsert/dialect/sql/sqlstate"
)

// Standard sentinel errors for the failure categories of an upsert.
var (
	// ErrInvalidInput is returned when the selector or setter arguments are
	// not usable as a field to value mapping.
	ErrInvalidInput = errors.New("sqlupsert: invalid input")

	// ErrUnknownColumn is returned when a referenced field is not a column
	// of the target table.
	ErrUnknownColumn = errors.New("sqlupsert: unknown column")

	// ErrDefinition is returned when defining the stored routine raced with
	// another session twice in a row.
	ErrDefinition = errors.New("sqlupsert: routine definition failed")
)

// InvalidInputError is reported before any interaction with the store.
type InvalidInputError struct {
	Field  string // "selector", "setter" or the offending field name
	Reason string
}

// Error returns the error string.
func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("sqlupsert: invalid %s: %s", e.Field, e.Reason)
}

// Is reports whether the target error matches InvalidInputError.
func (e *InvalidInputError) Is(err error) bool {
	return err == ErrInvalidInput
}

// NewInvalidInputError returns a new InvalidInputError.
func NewInvalidInputError(field, reason string) *InvalidInputError {
	return &InvalidInputError{Field: field, Reason: reason}
}

// IsInvalidInput returns true if the error is an InvalidInputError.
func IsInvalidInput(err error) bool {
	if err == nil {
		return false
	}
	var e *InvalidInputError
	return errors.As(err, &e) || errors.Is(err, ErrInvalidInput)
}

// LookupError represents a field that does not resolve to a column of
// the target table. Field is empty when the table itself is missing.
type LookupError struct {
	Table string
	Field string
}

// Error returns the error string.
func (e *LookupError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("sqlupsert: table %s not found", e.Table)
	}
	return fmt.Sprintf("sqlupsert: column %q not found in table %s", e.Field, e.Table)
}

// Is reports whether the target error matches LookupError.
func (e *LookupError) Is(err error) bool {
	return err == ErrUnknownColumn
}

// NewLookupError returns a new LookupError.
func NewLookupError(table, field string) *LookupError {
	return &LookupError{Table: table, Field: field}
}

// IsLookupError returns true if the error is a LookupError.
func IsLookupError(err error) bool {
	if err == nil {
		return false
	}
	var e *LookupError
	return errors.As(err, &e) || errors.Is(err, ErrUnknownColumn)
}

// DefinitionError wraps the definition race that recurred after the
// single retry.
type DefinitionError struct {
	Procedure string
	Err       error
}

// Error returns the error string.
func (e *DefinitionError) Error() string {
	return fmt.Sprintf("sqlupsert: define %s: %v", e.Procedure, e.Err)
}

// Is reports whether the target error matches DefinitionError.
func (e *DefinitionError) Is(err error) bool {
	return err == ErrDefinition
}

// Unwrap returns the underlying error.
func (e *DefinitionError) Unwrap() error {
	return e.Err
}

// NewDefinitionError returns a new DefinitionError.
func NewDefinitionError(procedure string, err error) *DefinitionError {
	return &DefinitionError{Procedure: procedure, Err: err}
}

// IsDefinitionError returns true if the error is a DefinitionError.
func IsDefinitionError(err error) bool {
	if err == nil {
		return false
	}
	var e *DefinitionError
	return errors.As(err, &e) || errors.Is(err, ErrDefinition)
}

// StoreError wraps any other failure reported by the store. The driver
// error is kept verbatim and reachable with errors.As.
type StoreError struct {
	Op        string // "inspect", "default", "define", "call", "list" or "drop"
	Procedure string // Optional
	Err       error
}

// Error returns the error string.
func (e *StoreError) Error() string {
	if e.Procedure != "" {
		return fmt.Sprintf("sqlupsert: %s %s: %v", e.Op, e.Procedure, e.Err)
	}
	return fmt.Sprintf("sqlupsert: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError returns a new StoreError.
func NewStoreError(op, procedure string, err error) *StoreError {
	return &StoreError{Op: op, Procedure: procedure, Err: err}
}

// IsStoreError returns true if the error is a StoreError.
func IsStoreError(err error) bool {
	if err == nil {
		return false
	}
	var e *StoreError
	return errors.As(err, &e)
}

// IsConstraintError reports whether err is a StoreError raised by a table
// constraint rejecting the written row, such as a NOT NULL column left
// without a value on the insert path.
func IsConstraintError(err error) bool {
	var e *StoreError
	return errors.As(err, &e) && sqlstate.IsConstraintError(e.Err)
}

// AggregateError represents multiple errors collected during an operation.
type AggregateError struct {
	Errors []error
}

// Error returns the error string.
func (e *AggregateError) Error() string {
	if len(e.Errors) == 0 {
		return "sqlupsert: no errors"
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	var sb strings.Builder
	sb.WriteString("sqlupsert: multiple errors:")
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "\n  [%d] %v", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the collected errors.
func (e *AggregateError) Unwrap() []error {
	return e.Errors
}

// NewAggregateError returns a new AggregateError if there are errors,
// otherwise returns nil.
func NewAggregateError(errs ...error) error {
	var filtered []error
	for _, err := range errs {
		if err != nil {
			filtered = append(filtered, err)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &AggregateError{Errors: filtered}
}
