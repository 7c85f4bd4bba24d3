package form

import (
	"context"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Context is the only surface rules, validators, services and presentation
// collaborators use to read or change a form instance. Every operation
// applies to the instance that produced the context.
type Context interface {
	// Name returns the instance name.
	Name() string
	// Fields returns the field declarations in declaration order.
	Fields() []model.FieldDefinition
	// State returns the current immutable snapshot.
	State() *model.FormState
	// Lookup returns the current value of id.
	Lookup(id string) (any, bool)
	// AllValues returns a copy of every value.
	AllValues() map[string]any

	// SetValue commits value for id, re-applies the rules and runs the
	// service field-changed hook.
	SetValue(id string, value any) error
	Show(id string) error
	Hide(id string) error
	Enable(id string) error
	Disable(id string) error

	// SetFieldError replaces the errors of id with message. An empty message
	// clears the field.
	SetFieldError(id, message string) error
	// SetAllErrors replaces the whole error list.
	SetAllErrors(errs []model.FormError) error
	// UpdateErrors replaces the error list with fn applied to the current
	// one. fn runs under the instance state lock and must not call back into
	// the context.
	UpdateErrors(fn func([]model.FormError) []model.FormError) error
	ClearErrors() error

	// Validate runs every registered validator and publishes the aggregate.
	Validate(ctx context.Context) ([]model.FormError, error)
	// ValidateField runs the validators registered for id only.
	ValidateField(ctx context.Context, id string) ([]model.FormError, error)

	// Snapshot records the current state as an undo checkpoint.
	Snapshot() (Snapshot, error)
	// Undo restores the previous checkpoint. It reports false when the
	// history is empty and ErrClosed once the instance is closed.
	Undo() (bool, error)
	// Redo re-applies the checkpoint undone last.
	Redo() (bool, error)

	// Focus and ChangeStep forward presentation events to analytics.
	Focus(id string)
	ChangeStep(step string)
}

// Value reads id from c and asserts it to T. It reports false when the value
// is absent or holds a different type.
func Value[T any](c Context, id string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	raw, ok := c.Lookup(id)
	if !ok {
		return zero, false
	}
	typed, ok := raw.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}

// formContext binds an Instance, optionally to the edit transaction that is
// running while rules and hooks execute.
type formContext struct {
	inst *Instance
	tx   *transaction
}

var _ Context = (*formContext)(nil)

func (c *formContext) Name() string {
	return c.inst.name
}

func (c *formContext) Fields() []model.FieldDefinition {
	return append([]model.FieldDefinition(nil), c.inst.fields...)
}

func (c *formContext) State() *model.FormState {
	return c.inst.State()
}

func (c *formContext) Lookup(id string) (any, bool) {
	return c.inst.State().Value(id)
}

func (c *formContext) AllValues() map[string]any {
	return c.inst.State().Values()
}

func (c *formContext) SetValue(id string, value any) error {
	if c.tx != nil {
		if handled, err := c.tx.setValue(id, value); handled {
			return err
		}
	}
	return c.inst.setValue(id, value)
}

func (c *formContext) Show(id string) error {
	return c.inst.setVisible(id, true)
}

func (c *formContext) Hide(id string) error {
	return c.inst.setVisible(id, false)
}

func (c *formContext) Enable(id string) error {
	return c.inst.setEnabled(id, true)
}

func (c *formContext) Disable(id string) error {
	return c.inst.setEnabled(id, false)
}

func (c *formContext) SetFieldError(id, message string) error {
	return c.inst.setFieldError(id, message)
}

func (c *formContext) SetAllErrors(errs []model.FormError) error {
	return c.inst.setAllErrors(errs)
}

func (c *formContext) ClearErrors() error {
	return c.inst.setAllErrors(nil)
}

func (c *formContext) Validate(ctx context.Context) ([]model.FormError, error) {
	return c.inst.registry.Validate(ctx, c)
}

func (c *formContext) ValidateField(ctx context.Context, id string) ([]model.FormError, error) {
	if err := c.inst.checkField(id); err != nil {
		return nil, err
	}
	return c.inst.registry.Validate(ctx, c, id)
}

func (c *formContext) Snapshot() (Snapshot, error) {
	return c.inst.snapshot()
}

func (c *formContext) Undo() (bool, error) {
	return c.inst.undo()
}

func (c *formContext) Redo() (bool, error) {
	return c.inst.redo()
}

func (c *formContext) Focus(id string) {
	c.inst.sink.FieldFocused(c.inst.name, id)
}

func (c *formContext) ChangeStep(step string) {
	c.inst.sink.StepChanged(c.inst.name, step)
}

func (c *formContext) UpdateErrors(fn func([]model.FormError) []model.FormError) error {
	return c.inst.updateErrors(fn)
}
