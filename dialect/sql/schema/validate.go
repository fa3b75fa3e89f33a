package schema

import (
	"fmt"
	"strings"
)

// ValidationError represents a problem found while checking the columns
// referenced by an upsert against the inspected table.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	// Missing reports that the column does not exist in the table.
	Missing bool
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// ValidationResult holds the results of column validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Missing returns the names of the referenced columns absent from the table.
func (r *ValidationResult) Missing() []string {
	var names []string
	for _, e := range r.Errors {
		if e.Missing {
			names = append(names, e.Column)
		}
	}
	return names
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	write := func(title string, errs []*ValidationError) {
		if len(errs) == 0 {
			return
		}
		sb.WriteString(title)
		sb.WriteString(":\n")
		for _, e := range errs {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	write("Errors", r.Errors)
	write("Warnings", r.Warnings)
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// ValidateOption configures column validation.
type ValidateOption func(*validateConfig)

type validateConfig struct {
	skipNotNull bool
}

// SkipNotNull disables the warning about NOT NULL columns that the
// insert path leaves unset.
func SkipNotNull() ValidateOption {
	return func(c *validateConfig) {
		c.skipNotNull = true
	}
}

// Validate checks that every column in columns exists in t. Missing
// columns are reported as errors. A NOT NULL column without a default
// that is not among columns is reported as a warning, since inserting a
// new row would fail on it.
func Validate(t *Table, columns []string, opts ...ValidateOption) *ValidationResult {
	cfg := &validateConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	result := &ValidationResult{}
	used := make(map[string]bool, len(columns))
	for _, name := range columns {
		if used[name] {
			continue
		}
		used[name] = true
		if _, ok := t.Column(name); !ok {
			result.Errors = append(result.Errors, &ValidationError{
				Table:   t.String(),
				Column:  name,
				Message: "column does not exist",
				Missing: true,
			})
		}
	}
	if cfg.skipNotNull {
		return result
	}
	for _, c := range t.Columns {
		if !used[c.Name] && !c.Nullable && !c.HasDefault() {
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   t.String(),
				Column:  c.Name,
				Message: "NOT NULL column without default is not set on insert",
			})
		}
	}
	return result
}
