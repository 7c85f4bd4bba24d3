package form

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/sourcegraph/conc/iter"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Validator checks one field value. A nil FormError means the value is
// valid. A non-nil error is a programming failure and aborts the run.
// Validators may block on I/O; they receive the value captured when the run
// started.
type Validator interface {
	Validate(ctx context.Context, form Context, fieldID string, value any) (model.FormError, error)
}

// ValidatorFunc adapts a function into a Validator.
type ValidatorFunc func(ctx context.Context, form Context, fieldID string, value any) (model.FormError, error)

// Validate delegates to the underlying function.
func (fn ValidatorFunc) Validate(ctx context.Context, form Context, fieldID string, value any) (model.FormError, error) {
	return fn(ctx, form, fieldID, value)
}

// Registry holds the validators of one form instance keyed by field, in
// registration order.
type Registry struct {
	mu         sync.Mutex
	order      []string
	validators map[string][]Validator
	issued     map[string]uint64
	applied    map[string]uint64
}

// NewRegistry constructs an empty validator registry.
func NewRegistry() *Registry {
	return &Registry{
		validators: make(map[string][]Validator),
		issued:     make(map[string]uint64),
		applied:    make(map[string]uint64),
	}
}

// Register appends validators for fieldID.
func (r *Registry) Register(fieldID string, validators ...Validator) error {
	id := strings.TrimSpace(fieldID)
	if id == "" {
		return fmt.Errorf("%w: validator field id is required", ErrConfiguration)
	}
	for idx, validator := range validators {
		if validator == nil {
			return fmt.Errorf("%w: validator %d for field %q is nil", ErrConfiguration, idx, id)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.validators[id]; !exists {
		r.order = append(r.order, id)
	}
	r.validators[id] = append(r.validators[id], validators...)
	return nil
}

// Fields returns the fields with validators, in registration order.
func (r *Registry) Fields() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Has reports whether fieldID has at least one validator.
func (r *Registry) Has(fieldID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.validators[fieldID]) > 0
}

type fieldRun struct {
	field      string
	seq        uint64
	value      any
	validators []Validator
}

type fieldOutcome struct {
	field  string
	seq    uint64
	errors []model.FormError
	err    error
}

// Validate runs the validators of the given fields, or of every registered
// field when none is given, and publishes the aggregate once all of them
// finished. A field result older than one already published for that field
// is discarded and the field keeps its currently published errors. The returned slice holds the
// errors computed by this run, stale or not.
func (r *Registry) Validate(ctx context.Context, form Context, fields ...string) ([]model.FormError, error) {
	if ctx == nil {
		return nil, errors.New("form: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := len(fields) == 0

	state := form.State()
	runs := r.start(state, fields)
	if len(runs) == 0 && !full {
		return nil, nil
	}

	outcomes := iter.Mapper[fieldRun, fieldOutcome]{MaxGoroutines: max(len(runs), 1)}.Map(runs, func(run *fieldRun) fieldOutcome {
		return runField(ctx, form, run)
	})

	var (
		computed []model.FormError
		failures []error
	)
	for _, outcome := range outcomes {
		if outcome.err != nil {
			failures = append(failures, outcome.err)
			continue
		}
		computed = append(computed, outcome.errors...)
	}
	if len(failures) > 0 {
		return nil, errors.Join(failures...)
	}

	if err := form.UpdateErrors(func(current []model.FormError) []model.FormError {
		return r.merge(current, outcomes, full)
	}); err != nil {
		return computed, err
	}
	return computed, nil
}

func (r *Registry) start(state *model.FormState, fields []string) []fieldRun {
	r.mu.Lock()
	defer r.mu.Unlock()

	targets := fields
	if len(targets) == 0 {
		targets = r.order
	}

	runs := make([]fieldRun, 0, len(targets))
	seen := make(map[string]struct{}, len(targets))
	for _, field := range targets {
		if _, dup := seen[field]; dup {
			continue
		}
		seen[field] = struct{}{}
		validators := r.validators[field]
		if len(validators) == 0 {
			continue
		}
		r.issued[field]++
		value, _ := state.Value(field)
		runs = append(runs, fieldRun{
			field:      field,
			seq:        r.issued[field],
			value:      value,
			validators: append([]Validator(nil), validators...),
		})
	}
	return runs
}

func runField(ctx context.Context, form Context, run *fieldRun) (outcome fieldOutcome) {
	outcome = fieldOutcome{field: run.field, seq: run.seq}
	for idx, validator := range run.validators {
		formErr, err := callValidator(ctx, form, run, idx, validator)
		if err != nil {
			outcome.err = err
			return outcome
		}
		if formErr == nil {
			continue
		}
		outcome.errors = append(outcome.errors, model.NewFieldError(run.field, formErr.Message()))
	}
	return outcome
}

func callValidator(ctx context.Context, form Context, run *fieldRun, idx int, validator Validator) (formErr model.FormError, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &ValidatorError{Field: run.field, Index: idx, Err: fmt.Errorf("panic: %v", recovered)}
		}
	}()
	formErr, err = validator.Validate(ctx, form, run.field, run.value)
	if err != nil {
		return nil, &ValidatorError{Field: run.field, Index: idx, Err: err}
	}
	return formErr, nil
}

// merge builds the error list to publish. It runs inside Context.UpdateErrors,
// so sequence checks and the write are atomic with other state commits.
func (r *Registry) merge(current []model.FormError, outcomes []fieldOutcome, full bool) []model.FormError {
	r.mu.Lock()
	fresh := make(map[string][]model.FormError, len(outcomes))
	for _, outcome := range outcomes {
		if outcome.seq < r.applied[outcome.field] {
			continue
		}
		r.applied[outcome.field] = outcome.seq
		fresh[outcome.field] = outcome.errors
	}
	order := append([]string(nil), r.order...)
	r.mu.Unlock()

	if full {
		return mergeFull(current, order, outcomes, fresh)
	}
	return mergeSubset(current, outcomes, fresh)
}

// mergeFull replaces the whole list. Fields whose result went stale keep the
// errors already published for them.
func mergeFull(current []model.FormError, order []string, outcomes []fieldOutcome, fresh map[string][]model.FormError) []model.FormError {
	ran := make(map[string]struct{}, len(outcomes))
	for _, outcome := range outcomes {
		ran[outcome.field] = struct{}{}
	}

	var out []model.FormError
	for _, field := range order {
		if _, ok := ran[field]; !ok {
			continue
		}
		if errs, ok := fresh[field]; ok {
			out = append(out, errs...)
			continue
		}
		for _, err := range current {
			if model.ErrorField(err) == field {
				out = append(out, err)
			}
		}
	}
	return out
}

// mergeSubset swaps the errors of freshly validated fields in place and
// leaves everything else untouched.
func mergeSubset(current []model.FormError, outcomes []fieldOutcome, fresh map[string][]model.FormError) []model.FormError {
	emitted := make(map[string]struct{}, len(fresh))
	out := make([]model.FormError, 0, len(current))
	for _, err := range current {
		field := model.ErrorField(err)
		errs, replace := fresh[field]
		if field == "" || !replace {
			out = append(out, err)
			continue
		}
		if _, done := emitted[field]; done {
			continue
		}
		emitted[field] = struct{}{}
		out = append(out, errs...)
	}
	for _, outcome := range outcomes {
		errs, ok := fresh[outcome.field]
		if !ok {
			continue
		}
		if _, done := emitted[outcome.field]; done {
			continue
		}
		emitted[outcome.field] = struct{}{}
		out = append(out, errs...)
	}
	return out
}
