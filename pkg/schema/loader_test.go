package schema_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func TestLoadFS_YAMLDeclaration(t *testing.T) {
	t.Parallel()

	store, err := schema.LoadFS(os.DirFS(filepath.Join("testdata", "forms")))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	decl, ok := store.Form("signup")
	if !ok {
		t.Fatalf("expected signup form, got %v", store.Names())
	}
	if decl.Label != "Create account" || decl.Source != "signup.yaml" {
		t.Fatalf("unexpected declaration header %+v", decl)
	}

	goldenPath := filepath.Join("testdata", "signup.fields.golden.json")
	if testsupport.WriteGolden(t, goldenPath, decl.Fields) {
		return
	}
	want := testsupport.MustLoadFields(t, goldenPath)
	if diff := testsupport.CompareGolden(want, decl.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}
	if got := len(decl.Validations["name"]); got != 2 {
		t.Fatalf("expected 2 name validations, got %d", got)
	}
	if diff := testsupport.CompareGolden(map[string][]string{"plan": {"free", "pro"}}, decl.Choices()); diff != "" {
		t.Fatalf("choices mismatch (-want +got):\n%s", diff)
	}
}

func TestDeclaration_NewWiresValidators(t *testing.T) {
	t.Parallel()

	store, err := schema.LoadFS(os.DirFS(filepath.Join("testdata", "forms")))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	decl, _ := store.Form("signup")
	inst, err := decl.New()
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if inst.Name() != "signup" {
		t.Fatalf("expected instance name signup, got %q", inst.Name())
	}
	if inst.State().Visible("company.vat") {
		t.Fatalf("expected hidden declaration to start hidden")
	}

	fc := inst.Context()
	if err := fc.SetValue("email", "not-an-email"); err != nil {
		t.Fatalf("set email: %v", err)
	}
	errs, err := fc.Validate(context.Background())
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	want := []model.FormError{
		model.NewFieldError("name", "name is required"),
		model.NewFieldError("email", "must be a valid email address"),
	}
	if diff := testsupport.CompareGolden(want, errs); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadFS_JSONAndRejections(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"a/profile.json": {Data: []byte(`{"forms":{"profile":{"fields":[{"id":"bio","validations":[{"kind":"maxLength","params":{"value":"140"}}]}]}}}`)},
		"notes.txt":      {Data: []byte("ignored")},
	}
	store, err := schema.LoadFS(fsys)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := testsupport.CompareGolden([]string{"profile"}, store.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}

	cases := map[string]fstest.MapFS{
		"duplicate form": {
			"a.yaml": {Data: []byte("forms:\n  x:\n    fields:\n      - id: a\n")},
			"b.yaml": {Data: []byte("forms:\n  x:\n    fields:\n      - id: b\n")},
		},
		"duplicate field": {
			"a.yaml": {Data: []byte("forms:\n  x:\n    fields:\n      - id: a\n      - id: a\n")},
		},
		"unknown rule": {
			"a.yaml": {Data: []byte("forms:\n  x:\n    fields:\n      - id: a\n        validations:\n          - kind: bogus\n")},
		},
		"empty file": {
			"a.json": {Data: []byte("  ")},
		},
		"invalid": {
			"a.yaml": {Data: []byte("forms: [\n")},
		},
	}
	for name, fsys := range cases {
		if _, err := schema.LoadFS(fsys); err == nil || !strings.HasPrefix(err.Error(), "schema:") {
			t.Fatalf("%s: expected schema error, got %v", name, err)
		}
	}
}

func TestLoadFS_NilFS(t *testing.T) {
	t.Parallel()

	store, err := schema.LoadFS(nil)
	if err != nil || !store.Empty() {
		t.Fatalf("expected empty store, got %v %v", store, err)
	}
}
