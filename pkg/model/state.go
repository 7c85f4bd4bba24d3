package model

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// FormState is the authoritative snapshot of one form instance. The zero
// value is an empty, valid state. A FormState is never modified after it is
// built; all accessors return copies.
type FormState struct {
	values     map[string]any
	visibility map[string]bool
	enabled    map[string]bool
	errors     []FormError
}

// NewState builds the initial state for the declared fields. Every field gets
// explicit visibility and enabled entries so the default-visible and
// default-enabled policy does not depend on missing map keys.
func NewState(fields []FieldDefinition) *FormState {
	state := &FormState{
		values:     make(map[string]any, len(fields)),
		visibility: make(map[string]bool, len(fields)),
		enabled:    make(map[string]bool, len(fields)),
	}
	for _, field := range fields {
		if field.Default != nil {
			state.values[field.ID] = deepCopy(field.Default)
		}
		state.visibility[field.ID] = !field.Hidden
		state.enabled[field.ID] = !field.Disabled
	}
	return state
}

// Value returns a copy of the value stored for id.
func (s *FormState) Value(id string) (any, bool) {
	if s == nil {
		return nil, false
	}
	value, ok := s.values[id]
	if !ok {
		return nil, false
	}
	return deepCopy(value), true
}

// Values returns a copy of every stored value.
func (s *FormState) Values() map[string]any {
	if s == nil {
		return map[string]any{}
	}
	return cloneValues(s.values)
}

// Visible reports whether id is visible. Unknown identifiers are visible.
func (s *FormState) Visible(id string) bool {
	if s == nil {
		return true
	}
	visible, ok := s.visibility[id]
	return !ok || visible
}

// IsEnabled reports whether id is enabled. Unknown identifiers are enabled.
func (s *FormState) IsEnabled(id string) bool {
	if s == nil {
		return true
	}
	enabled, ok := s.enabled[id]
	return !ok || enabled
}

// Visibility returns a copy of the explicit visibility flags.
func (s *FormState) Visibility() map[string]bool {
	if s == nil {
		return map[string]bool{}
	}
	return cloneFlags(s.visibility)
}

// Enabled returns a copy of the explicit enabled flags.
func (s *FormState) Enabled() map[string]bool {
	if s == nil {
		return map[string]bool{}
	}
	return cloneFlags(s.enabled)
}

// Errors returns the error list in insertion order.
func (s *FormState) Errors() []FormError {
	if s == nil || len(s.errors) == 0 {
		return nil
	}
	return append([]FormError(nil), s.errors...)
}

// HasErrors reports whether any error is attached.
func (s *FormState) HasErrors() bool {
	return s != nil && len(s.errors) > 0
}

// FieldErrors returns the messages attached to id, in order.
func (s *FormState) FieldErrors(id string) []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, err := range s.errors {
		if fieldErr, ok := err.(FieldError); ok && fieldErr.FieldID == id {
			out = append(out, fieldErr.Text)
		}
	}
	return out
}

// GlobalErrors returns the form level messages, in order.
func (s *FormState) GlobalErrors() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, err := range s.errors {
		if globalErr, ok := err.(GlobalError); ok {
			out = append(out, globalErr.Text)
		}
	}
	return out
}

// WithValue returns a new state with id set to value.
func (s *FormState) WithValue(id string, value any) *FormState {
	next := s.clone()
	next.values[id] = deepCopy(value)
	return next
}

// WithVisible returns a new state with the visibility flag of id set.
func (s *FormState) WithVisible(id string, visible bool) *FormState {
	next := s.clone()
	next.visibility[id] = visible
	return next
}

// WithEnabled returns a new state with the enabled flag of id set.
func (s *FormState) WithEnabled(id string, enabled bool) *FormState {
	next := s.clone()
	next.enabled[id] = enabled
	return next
}

// WithErrors returns a new state whose error list is replaced by errs.
func (s *FormState) WithErrors(errs []FormError) *FormState {
	next := s.clone()
	next.errors = compactErrors(errs)
	return next
}

// WithFieldError returns a new state where the errors of id are replaced by a
// single entry. An empty message clears the field. The entry keeps the
// position of the first error previously attached to id, or is appended.
func (s *FormState) WithFieldError(id, message string) *FormState {
	next := s.clone()
	out := make([]FormError, 0, len(next.errors)+1)
	placed := false
	for _, err := range next.errors {
		if ErrorField(err) != id {
			out = append(out, err)
			continue
		}
		if !placed && message != "" {
			out = append(out, NewFieldError(id, message))
		}
		placed = true
	}
	if !placed && message != "" {
		out = append(out, NewFieldError(id, message))
	}
	next.errors = compactErrors(out)
	return next
}

// Equal reports structural equality of two states. Nil and empty
// collections compare equal.
func (s *FormState) Equal(other *FormState) bool {
	if s == other {
		return true
	}
	opts := cmp.Options{cmpopts.EquateEmpty(), exportAll}
	return cmp.Equal(s.Values(), other.Values(), opts) &&
		cmp.Equal(s.Visibility(), other.Visibility(), opts) &&
		cmp.Equal(s.Enabled(), other.Enabled(), opts) &&
		cmp.Equal(s.Errors(), other.Errors(), opts)
}

// EqualValues reports whether two field values are structurally equal.
func EqualValues(a, b any) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty(), exportAll)
}

// Values are embedder supplied and may hold structs with unexported fields.
var exportAll = cmp.Exporter(func(reflect.Type) bool { return true })

func (s *FormState) clone() *FormState {
	if s == nil {
		return &FormState{
			values:     make(map[string]any),
			visibility: make(map[string]bool),
			enabled:    make(map[string]bool),
		}
	}
	return &FormState{
		values:     cloneValues(s.values),
		visibility: cloneFlags(s.visibility),
		enabled:    cloneFlags(s.enabled),
		errors:     append([]FormError(nil), s.errors...),
	}
}

func compactErrors(errs []FormError) []FormError {
	if len(errs) == 0 {
		return nil
	}
	out := make([]FormError, 0, len(errs))
	for _, err := range errs {
		if err == nil {
			continue
		}
		out = append(out, err)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func cloneValues(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = deepCopy(v)
	}
	return out
}

func cloneFlags(src map[string]bool) map[string]bool {
	out := make(map[string]bool, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

func deepCopy(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		clone := make(map[string]any, len(typed))
		for k, v := range typed {
			clone[k] = deepCopy(v)
		}
		return clone
	case []any:
		clone := make([]any, len(typed))
		for i, v := range typed {
			clone[i] = deepCopy(v)
		}
		return clone
	case []string:
		return append([]string(nil), typed...)
	default:
		return typed
	}
}
