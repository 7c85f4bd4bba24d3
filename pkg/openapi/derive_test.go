package openapi_test

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/testsupport"
	"github.com/goliatone/go-formflow/pkg/validation"
)

func loadPetstore(t *testing.T) *openapi.Document {
	t.Helper()

	doc, err := openapi.LoadFile(testsupport.Context(), filepath.Join("testdata", "petstore.yaml"))
	if err != nil {
		t.Fatalf("load petstore: %v", err)
	}
	return doc
}

func TestLoad_Operations(t *testing.T) {
	t.Parallel()

	doc := loadPetstore(t)
	want := []string{"createPet", "delete:/pets/{id}", "listPets"}
	if diff := testsupport.CompareGolden(want, doc.Operations()); diff != "" {
		t.Fatalf("operations mismatch (-want +got):\n%s", diff)
	}

	if _, err := doc.Operation("missing"); !errors.Is(err, openapi.ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}

func TestDerive_CreatePet(t *testing.T) {
	t.Parallel()

	decl, err := openapi.Derive(loadPetstore(t), "createPet")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if decl.Name != "createPet" || decl.Label != "Create a pet" {
		t.Fatalf("unexpected declaration header %+v", decl)
	}

	goldenPath := filepath.Join("testdata", "create_pet.fields.golden.json")
	if testsupport.WriteGolden(t, goldenPath, decl.Fields) {
		return
	}
	want := testsupport.MustLoadFields(t, goldenPath)
	if diff := testsupport.CompareGolden(want, decl.Fields); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	wantRules := map[string][]validation.Rule{
		"age": {
			{Kind: validation.KindMin, Params: map[string]string{"value": "0"}},
			{Kind: validation.KindMax, Params: map[string]string{"value": "30", "exclusive": "true"}},
		},
		"name": {
			{Kind: validation.KindRequired},
			{Kind: validation.KindMinLength, Params: map[string]string{"value": "2"}},
			{Kind: validation.KindMaxLength, Params: map[string]string{"value": "40"}},
		},
		"owner.email": {
			{Kind: validation.KindRequired},
			{Kind: validation.KindEmail},
		},
		"owner.phone": {
			{Kind: validation.KindPattern, Params: map[string]string{"pattern": "^[0-9+ ]+$"}},
		},
		"petType": {
			{Kind: validation.KindEnum, Params: map[string]string{"values": "dog,cat"}},
		},
	}
	if diff := testsupport.CompareGolden(wantRules, decl.Validations); diff != "" {
		t.Fatalf("validations mismatch (-want +got):\n%s", diff)
	}
}

func TestDerive_RequiredValidatorsGateSubmission(t *testing.T) {
	t.Parallel()

	decl, err := openapi.Derive(loadPetstore(t), "createPet")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	inst, err := decl.New()
	if err != nil {
		t.Fatalf("new instance: %v", err)
	}

	result, err := inst.Submit(testsupport.Context())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.Submitted {
		t.Fatalf("expected submission blocked by required fields")
	}
	want := []model.FormError{
		model.NewFieldError("name", "is required"),
		model.NewFieldError("owner.email", "is required"),
	}
	if diff := testsupport.CompareGolden(want, result.Errors); diff != "" {
		t.Fatalf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestDerive_OperationWithoutBody(t *testing.T) {
	t.Parallel()

	decl, err := openapi.Derive(loadPetstore(t), "listPets")
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	if len(decl.Fields) != 0 {
		t.Fatalf("expected no fields, got %+v", decl.Fields)
	}
}

func TestLoad_Rejections(t *testing.T) {
	t.Parallel()

	ctx := testsupport.Context()
	if _, err := openapi.Load(ctx, nil, "empty"); err == nil {
		t.Fatalf("expected error for empty payload")
	}
	if _, err := openapi.Load(ctx, []byte("openapi: 3.0.3\ninfo:\n  title: x\n  version: '1'\npaths: {}\n"), "nopaths"); err == nil {
		t.Fatalf("expected error for document without paths")
	}
}

func TestDefaultLabeler(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"petType":    "Pet type",
		"first_name": "First name",
		"line2":      "Line 2",
		"":           "",
	}
	for input, want := range cases {
		if got := openapi.DefaultLabeler(input); got != want {
			t.Fatalf("DefaultLabeler(%q) = %q, want %q", input, got, want)
		}
	}
}
