package form

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/goliatone/go-formflow/pkg/analytics"
	"github.com/goliatone/go-formflow/pkg/model"
)

func TestInstance_HeldStateNeverMutated(t *testing.T) {
	t.Parallel()

	inst, err := New(signupFields())
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	fc := inst.Context()

	before := inst.State()
	heldValues := before.Values()

	steps := []func() error{
		func() error { return fc.SetValue("name", "Ada") },
		func() error { return fc.Hide("email") },
		func() error { return fc.Disable("note") },
		func() error { return fc.SetFieldError("name", "bad") },
		func() error { return fc.SetAllErrors([]model.FormError{model.NewGlobalError("down")}) },
	}
	for idx, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", idx, err)
		}
	}

	if len(before.Values()) != len(heldValues) || !before.Visible("email") || !before.IsEnabled("note") || before.HasErrors() {
		t.Fatalf("held state changed: %+v", before.Persisted())
	}
	if inst.State() == before {
		t.Fatalf("expected a new state instance")
	}
}

func TestInstance_UnknownFieldIsConfigurationError(t *testing.T) {
	t.Parallel()

	inst, err := New(signupFields())
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	fc := inst.Context()

	checks := map[string]error{
		"set value":   fc.SetValue("ghost", 1),
		"show":        fc.Show("ghost"),
		"disable":     fc.Disable("ghost"),
		"field error": fc.SetFieldError("ghost", "x"),
		"all errors":  fc.SetAllErrors([]model.FormError{model.NewFieldError("ghost", "x")}),
	}
	for name, err := range checks {
		if !errors.Is(err, ErrUnknownField) || !errors.Is(err, ErrConfiguration) {
			t.Fatalf("%s: expected unknown field configuration error, got %v", name, err)
		}
	}
	if _, ok := Value[int](fc, "ghost"); ok {
		t.Fatalf("expected missing value for unknown field")
	}
}

func TestValue_TypeMismatch(t *testing.T) {
	t.Parallel()

	inst, err := New([]model.FieldDefinition{{ID: "age", Default: 42}})
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	fc := inst.Context()

	if got, ok := Value[int](fc, "age"); !ok || got != 42 {
		t.Fatalf("expected 42, got %v (ok=%v)", got, ok)
	}
	if _, ok := Value[string](fc, "age"); ok {
		t.Fatalf("expected type mismatch to report false")
	}
}

func TestInstance_RuleSetValueCascades(t *testing.T) {
	t.Parallel()

	fields := []model.FieldDefinition{{ID: "country"}, {ID: "currency"}, {ID: "iban"}}
	inst, err := New(fields,
		WithRule("currency-from-country", 1, RuleFunc(func(ctx Context) error {
			if country, _ := Value[string](ctx, "country"); country == "DE" {
				return ctx.SetValue("currency", "EUR")
			}
			return nil
		}), "country"),
		WithRule("iban-for-eur", 2, RuleFunc(func(ctx Context) error {
			if currency, _ := Value[string](ctx, "currency"); currency == "EUR" {
				return ctx.Show("iban")
			}
			return ctx.Hide("iban")
		}), "currency"),
	)
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	if err := inst.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if inst.State().Visible("iban") {
		t.Fatalf("expected iban hidden after init")
	}

	if err := inst.Context().SetValue("country", "DE"); err != nil {
		t.Fatalf("set country: %v", err)
	}
	state := inst.State()
	if got, _ := state.Value("currency"); got != "EUR" {
		t.Fatalf("expected currency EUR, got %v", got)
	}
	if !state.Visible("iban") {
		t.Fatalf("expected follow-up edit to show iban")
	}
}

func TestInstance_NonSettlingRulesFail(t *testing.T) {
	t.Parallel()

	counter := 0
	inst, err := New([]model.FieldDefinition{{ID: "a"}, {ID: "b"}},
		WithMaxCascade(8),
		WithRule("flip", 1, RuleFunc(func(ctx Context) error {
			counter++
			return ctx.SetValue("b", counter)
		})),
	)
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}

	err = inst.Context().SetValue("a", 1)
	if !errors.Is(err, ErrCascade) {
		t.Fatalf("expected cascade error, got %v", err)
	}
}

type recordingService struct {
	BaseService
	mu      sync.Mutex
	changed []string
	inits   int
	resumes int
}

func (s *recordingService) OnInit(Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inits++
	return nil
}

func (s *recordingService) OnFieldChanged(fc Context, fieldID string, value any) error {
	s.mu.Lock()
	s.changed = append(s.changed, fieldID)
	s.mu.Unlock()
	if fieldID == "name" {
		return fc.SetValue("note", "hello "+value.(string))
	}
	return nil
}

func (s *recordingService) OnResume(Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resumes++
	return nil
}

func TestInstance_HooksAndAnalytics(t *testing.T) {
	t.Parallel()

	svc := &recordingService{}
	rec := &analytics.Recorder{}
	inst, err := New(signupFields(), WithName("signup"), WithService(svc), WithAnalytics(rec))
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	if err := inst.Init(); err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := inst.Resume(); err != nil {
		t.Fatalf("resume: %v", err)
	}

	fc := inst.Context()
	fc.Focus("name")
	if err := fc.SetValue("name", "Ada"); err != nil {
		t.Fatalf("set name: %v", err)
	}
	fc.ChangeStep("review")

	if svc.inits != 1 || svc.resumes != 1 {
		t.Fatalf("expected one init and one resume, got %d and %d", svc.inits, svc.resumes)
	}
	if len(svc.changed) != 2 || svc.changed[0] != "name" || svc.changed[1] != "note" {
		t.Fatalf("expected hooks for name then note, got %v", svc.changed)
	}
	if got, _ := Value[string](fc, "note"); got != "hello Ada" {
		t.Fatalf("expected hook to set note, got %q", got)
	}

	var kinds []string
	for _, event := range rec.Events() {
		if event.Form != "signup" {
			t.Fatalf("expected form name on event, got %+v", event)
		}
		kinds = append(kinds, event.Kind+":"+event.Field+event.Step)
	}
	want := []string{"fieldFocused:name", "fieldChanged:name", "fieldChanged:note", "stepChanged:review"}
	if len(kinds) != len(want) {
		t.Fatalf("expected %v, got %v", want, kinds)
	}
	for idx := range want {
		if kinds[idx] != want[idx] {
			t.Fatalf("expected %v, got %v", want, kinds)
		}
	}
}

type explodingSink struct{ analytics.Nop }

func (explodingSink) FieldChanged(string, string, any) { panic("sink down") }

func TestInstance_AnalyticsFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	inst, err := New(signupFields(), WithAnalytics(explodingSink{}))
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	if err := inst.Context().SetValue("name", "Ada"); err != nil {
		t.Fatalf("expected sink panic to be swallowed, got %v", err)
	}
}

func TestInstance_SubscribeAndClose(t *testing.T) {
	t.Parallel()

	inst, err := New(signupFields())
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	var seen []*model.FormState
	unsubscribe := inst.Subscribe(func(state *model.FormState) {
		seen = append(seen, state)
	})

	fc := inst.Context()
	_ = fc.SetValue("name", "Ada")
	_ = fc.Hide("email")
	_ = fc.Hide("email")
	if len(seen) != 2 {
		t.Fatalf("expected 2 notifications (no-op hide skipped), got %d", len(seen))
	}
	if seen[1] != inst.State() {
		t.Fatalf("expected last notification to carry the current state")
	}

	unsubscribe()
	_ = fc.Show("email")
	if len(seen) != 2 {
		t.Fatalf("expected no notification after unsubscribe")
	}

	if _, err := fc.Snapshot(); err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	inst.Close()
	if past, _ := inst.History().Len(); past != 0 {
		t.Fatalf("expected history released on close")
	}
	if err := fc.SetValue("name", "x"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if _, err := inst.Submit(context.Background()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed on submit, got %v", err)
	}
}

func TestInstance_ConcurrentEditsProduceCompleteStates(t *testing.T) {
	t.Parallel()

	fields := []model.FieldDefinition{{ID: "a"}, {ID: "b"}, {ID: "mirror"}}
	inst, err := New(fields, WithRule("mirror-a", 1, RuleFunc(func(ctx Context) error {
		a, _ := ctx.Lookup("a")
		return ctx.SetValue("mirror", a)
	}), "a"))
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}
	fc := inst.Context()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(v int) {
			defer wg.Done()
			_ = fc.SetValue("a", v)
		}(i)
		go func(v int) {
			defer wg.Done()
			_ = fc.SetValue("b", v)
		}(i)
	}
	wg.Wait()

	state := inst.State()
	a, _ := state.Value("a")
	mirror, _ := state.Value("mirror")
	if a != mirror {
		t.Fatalf("expected mirror to follow a after serialized edits, got a=%v mirror=%v", a, mirror)
	}
}
