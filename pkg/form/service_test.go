package form

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/analytics"
	"github.com/goliatone/go-formflow/pkg/model"
)

type signupService struct {
	BaseService
	calls  int
	values []map[string]any
	fail   error
}

func (s *signupService) OnSubmit(ctx context.Context, fc Context) (SubmitResult, error) {
	return Submit(ctx, fc, func(_ context.Context, values map[string]any) error {
		s.calls++
		s.values = append(s.values, values)
		return s.fail
	})
}

func TestSubmit_ValidationGatesAction(t *testing.T) {
	t.Parallel()

	svc := &signupService{}
	rec := &analytics.Recorder{}
	inst, err := New(signupFields(),
		WithName("signup"),
		WithService(svc),
		WithAnalytics(rec),
		WithValidators("name", requiredValidator("name is required")),
	)
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}

	result, err := inst.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Submitted || svc.calls != 0 {
		t.Fatalf("expected blocked submission, got %+v with %d calls", result, svc.calls)
	}
	want := []model.FormError{model.NewFieldError("name", "name is required")}
	if diff := cmp.Diff(want, result.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, inst.State().Errors()); diff != "" {
		t.Fatalf("state errors mismatch (-want +got):\n%s", diff)
	}

	if err := inst.Context().SetValue("name", "x"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	result, err = inst.Submit(context.Background())
	if err != nil {
		t.Fatalf("resubmit: %v", err)
	}
	if !result.Submitted || svc.calls != 1 {
		t.Fatalf("expected exactly one action call, got %+v with %d calls", result, svc.calls)
	}
	if got := svc.values[0]["name"]; got != "x" {
		t.Fatalf("expected action to receive name x, got %v", got)
	}
	if inst.State().HasErrors() {
		t.Fatalf("expected errors cleared, got %v", inst.State().Errors())
	}

	var outcomes []bool
	for _, event := range rec.Events() {
		if event.Kind == "submitted" {
			outcomes = append(outcomes, event.Success)
		}
	}
	if diff := cmp.Diff([]bool{false, true}, outcomes); diff != "" {
		t.Fatalf("submitted events mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_PendingFieldRunDoesNotHideFailure(t *testing.T) {
	t.Parallel()

	gates := map[any]chan struct{}{
		"bad":  make(chan struct{}),
		"bad2": make(chan struct{}),
	}
	started := make(chan any, 2)
	gated := ValidatorFunc(func(_ context.Context, _ Context, fieldID string, value any) (model.FormError, error) {
		if gate, ok := gates[value]; ok {
			started <- value
			<-gate
		}
		return model.NewFieldError(fieldID, fmt.Sprintf("invalid %v", value)), nil
	})
	awaitStart := func(want any) {
		t.Helper()
		select {
		case got := <-started:
			if got != want {
				t.Fatalf("expected run for %v to start, got %v", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("run for %v never started", want)
		}
	}

	svc := &signupService{}
	inst, err := New(signupFields(), WithService(svc), WithValidators("email", gated))
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	fc := inst.Context()
	ctx := context.Background()
	if err := fc.SetValue("email", "bad"); err != nil {
		t.Fatalf("set email: %v", err)
	}

	type submitted struct {
		result SubmitResult
		err    error
	}
	submitDone := make(chan submitted, 1)
	go func() {
		result, err := inst.Submit(ctx)
		submitDone <- submitted{result: result, err: err}
	}()
	awaitStart("bad")

	if err := fc.SetValue("email", "bad2"); err != nil {
		t.Fatalf("set email: %v", err)
	}
	fieldDone := make(chan error, 1)
	go func() {
		_, err := fc.ValidateField(ctx, "email")
		fieldDone <- err
	}()
	awaitStart("bad2")

	close(gates["bad"])
	out := <-submitDone
	if out.err != nil {
		t.Fatalf("submit: %v", out.err)
	}
	if out.result.Submitted || svc.calls != 0 {
		t.Fatalf("expected blocked submission, got %+v with %d calls", out.result, svc.calls)
	}
	want := []model.FormError{model.NewFieldError("email", "invalid bad")}
	if diff := cmp.Diff(want, out.result.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}

	close(gates["bad2"])
	if err := <-fieldDone; err != nil {
		t.Fatalf("field run: %v", err)
	}
	want = []model.FormError{model.NewFieldError("email", "invalid bad2")}
	if diff := cmp.Diff(want, inst.State().Errors()); diff != "" {
		t.Fatalf("state errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_ServerErrorsAttached(t *testing.T) {
	t.Parallel()

	svc := &signupService{fail: &SubmissionError{
		Err: errors.New("conflict"),
		Errors: []model.FormError{
			model.NewFieldError("email", "already registered"),
			model.NewGlobalError("try again later"),
		},
	}}
	inst, err := New(signupFields(), WithService(svc))
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}

	result, err := inst.Submit(context.Background())
	var submitErr *SubmissionError
	if !errors.As(err, &submitErr) {
		t.Fatalf("expected submission error, got %v", err)
	}
	if result.Submitted || svc.calls != 1 {
		t.Fatalf("expected failed submission after one call, got %+v", result)
	}
	if diff := cmp.Diff(svc.fail.(*SubmissionError).Errors, inst.State().Errors()); diff != "" {
		t.Fatalf("state errors mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_PlainActionFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	svc := &signupService{fail: boom}
	inst, err := New(signupFields(), WithService(svc))
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}

	result, err := inst.Submit(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if result.Submitted || inst.State().HasErrors() {
		t.Fatalf("expected no attached errors, got %+v", result)
	}
}

func TestBaseService_SubmitWithoutAction(t *testing.T) {
	t.Parallel()

	inst, err := New([]model.FieldDefinition{{ID: "name", Default: "Ada"}})
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	result, err := inst.Submit(context.Background())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !result.Submitted {
		t.Fatalf("expected base service to report success")
	}
	if diff := cmp.Diff(map[string]any{"name": "Ada"}, result.Values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestSubmit_NilContext(t *testing.T) {
	t.Parallel()

	if _, err := Submit(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil form context")
	}
}
