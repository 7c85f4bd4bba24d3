package form

import (
	"context"
	"errors"
	"fmt"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Service carries the lifecycle hooks of one business flow. Embed BaseService
// to inherit no-op defaults and override only the hooks a flow needs.
type Service interface {
	OnInit(fc Context) error
	OnFieldChanged(fc Context, fieldID string, value any) error
	OnSubmit(ctx context.Context, fc Context) (SubmitResult, error)
}

// Resumer is an optional hook invoked by Instance.Resume, for flows restored
// from persisted state. Services that do not implement it are unaffected.
type Resumer interface {
	OnResume(fc Context) error
}

// BaseService implements Service with no-op hooks. Its OnSubmit validates the
// form and reports the outcome without any side effect.
type BaseService struct{}

var _ Service = BaseService{}

func (BaseService) OnInit(Context) error { return nil }

func (BaseService) OnFieldChanged(Context, string, any) error { return nil }

func (BaseService) OnSubmit(ctx context.Context, fc Context) (SubmitResult, error) {
	return Submit(ctx, fc, nil)
}

// SubmitResult reports the outcome of a submission attempt. Submitted is false
// when validation blocked the action or the action failed.
type SubmitResult struct {
	Submitted bool
	Errors    []model.FormError
	Values    map[string]any
}

// Action is the embedder defined submission side effect. Return a
// *SubmissionError to attach server side errors to the form.
type Action func(ctx context.Context, values map[string]any) error

// Submit runs every validator, aborts when the run computed any error or the
// resulting state carries one, and otherwise invokes action exactly once with a copy of the values.
func Submit(ctx context.Context, fc Context, action Action) (SubmitResult, error) {
	if fc == nil {
		return SubmitResult{}, errors.New("form: submit context is required")
	}
	computed, err := fc.Validate(ctx)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("form: submit: %w", err)
	}

	state := fc.State()
	if len(computed) > 0 || state.HasErrors() {
		errs := state.Errors()
		if len(errs) == 0 {
			errs = computed
		}
		return SubmitResult{Errors: errs}, nil
	}

	values := state.Values()
	if action != nil {
		if err := action(ctx, values); err != nil {
			var submitErr *SubmissionError
			if errors.As(err, &submitErr) && len(submitErr.Errors) > 0 {
				if setErr := fc.SetAllErrors(submitErr.Errors); setErr != nil {
					return SubmitResult{}, errors.Join(err, setErr)
				}
				return SubmitResult{Errors: fc.State().Errors(), Values: values}, err
			}
			return SubmitResult{Values: values}, err
		}
	}
	return SubmitResult{Submitted: true, Values: values}, nil
}
