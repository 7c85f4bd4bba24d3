package form

import (
	"errors"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/model"
)

var (
	// ErrConfiguration marks programming mistakes: unknown field references,
	// failing rules or validators. They are fatal and never retried.
	ErrConfiguration = errors.New("form: configuration error")
	// ErrUnknownField is returned when an operation names an undeclared field.
	ErrUnknownField = fmt.Errorf("%w: unknown field", ErrConfiguration)
	// ErrCascade is returned when rules keep setting values without settling.
	ErrCascade = fmt.Errorf("%w: rule cascade did not settle", ErrConfiguration)
	// ErrClosed is returned by operations on an instance that was torn down.
	ErrClosed = errors.New("form: instance closed")
)

func unknownField(id string) error {
	return fmt.Errorf("%w %q", ErrUnknownField, id)
}

// RuleError reports a rule that failed or panicked while being applied.
type RuleError struct {
	Rule     string
	Priority int
	Err      error
}

func (e *RuleError) Error() string {
	name := e.Rule
	if name == "" {
		name = "<unnamed>"
	}
	return fmt.Sprintf("form: rule %s (priority %d): %v", name, e.Priority, e.Err)
}

// Unwrap exposes both the configuration sentinel and the cause.
func (e *RuleError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}

// ValidatorError reports a validator that failed or panicked.
type ValidatorError struct {
	Field string
	Index int
	Err   error
}

func (e *ValidatorError) Error() string {
	return fmt.Sprintf("form: validator %d for field %q: %v", e.Index, e.Field, e.Err)
}

// Unwrap exposes both the configuration sentinel and the cause.
func (e *ValidatorError) Unwrap() []error {
	return []error{ErrConfiguration, e.Err}
}

// SubmissionError is returned by submission actions when the business side
// effect fails. Errors, when present, are attached to the form state so the
// presentation layer can render them next to the offending fields.
type SubmissionError struct {
	Err    error
	Errors []model.FormError
}

func (e *SubmissionError) Error() string {
	if e.Err == nil {
		return "form: submission failed"
	}
	return "form: submission failed: " + e.Err.Error()
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
