package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/config"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/orchestrator"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/store"
	"github.com/goliatone/go-formflow/pkg/testsupport"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func formsDirFlag() string {
	return "--forms=" + filepath.Join("testdata", "forms")
}

func TestInspect_ListsAndPrintsDeclarations(t *testing.T) {
	out, err := execute(t, "inspect", formsDirFlag())
	if err != nil {
		t.Fatalf("inspect: %v", err)
	}
	if out != "profile\n" {
		t.Fatalf("unexpected form list %q", out)
	}

	out, err = execute(t, "inspect", "profile", formsDirFlag(), "--format=json")
	if err != nil {
		t.Fatalf("inspect profile: %v", err)
	}
	var view struct {
		Name   string `json:"name"`
		Fields []struct {
			ID          string `json:"id"`
			Validations []struct {
				Kind string `json:"kind"`
			} `json:"validations"`
		} `json:"fields"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode output: %v\n%s", err, out)
	}
	var ids []string
	for _, field := range view.Fields {
		ids = append(ids, field.ID)
	}
	if diff := cmp.Diff([]string{"name", "theme", "address.city"}, ids); diff != "" {
		t.Fatalf("field mismatch (-want +got):\n%s", diff)
	}
	if len(view.Fields[0].Validations) != 1 || view.Fields[0].Validations[0].Kind != "required" {
		t.Fatalf("expected required rule on name, got %+v", view.Fields[0].Validations)
	}

	if _, err := execute(t, "inspect", "missing", formsDirFlag(), "--format=yaml"); err == nil {
		t.Fatalf("expected error for unknown form")
	}
}

func TestFields_DerivesFromOpenAPI(t *testing.T) {
	spec := filepath.Join("testdata", "petstore.yaml")

	out, err := execute(t, "fields", spec)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if !strings.Contains(out, "createPet") || !strings.Contains(out, "listPets") {
		t.Fatalf("expected operations listed, got %q", out)
	}

	out, err = execute(t, "fields", spec, "createPet", "--format=yaml")
	if err != nil {
		t.Fatalf("fields createPet: %v", err)
	}
	if !strings.Contains(out, "name: createPet") || !strings.Contains(out, "kind: required") {
		t.Fatalf("unexpected derived declaration:\n%s", out)
	}
}

func TestStates_ListShowDelete(t *testing.T) {
	dbURL := "sqlite://" + filepath.Join(t.TempDir(), "states.db")
	ctx := testsupport.Context()

	db, err := store.Open(dbURL)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	states, err := store.New(ctx, db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	saved := model.Persisted{Values: map[string]any{"name": "Ada"}}
	if err := states.Save(ctx, "session-1", "profile", saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	out, err := execute(t, "states", "--db-url="+dbURL)
	if err != nil {
		t.Fatalf("states: %v", err)
	}
	if !strings.Contains(out, "session-1") || !strings.Contains(out, "profile") {
		t.Fatalf("expected saved session listed, got:\n%s", out)
	}

	out, err = execute(t, "states", "show", "session-1", "--db-url="+dbURL, "--format=json")
	if err != nil {
		t.Fatalf("states show: %v", err)
	}
	if !strings.Contains(out, `"name": "Ada"`) {
		t.Fatalf("expected saved values, got:\n%s", out)
	}

	if _, err := execute(t, "states", "delete", "session-1", "--db-url="+dbURL); err != nil {
		t.Fatalf("states delete: %v", err)
	}
	if _, err := states.Load(ctx, "session-1"); err == nil {
		t.Fatalf("expected state to be deleted")
	}
}

func TestMountInstance_ResumesSavedState(t *testing.T) {
	ctx := testsupport.Context()
	forms, err := schema.LoadFS(os.DirFS(filepath.Join("testdata", "forms")))
	if err != nil {
		t.Fatalf("load forms: %v", err)
	}
	decl, ok := forms.Form("profile")
	if !ok {
		t.Fatalf("expected profile form")
	}

	db, err := store.Open("sqlite://" + filepath.Join(t.TempDir(), "resume.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	states, err := store.New(ctx, db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	saved := model.Persisted{
		Values:     map[string]any{"name": "Ada", "theme": "dark"},
		Visibility: map[string]bool{"address.city": false},
	}
	if err := states.Save(ctx, "resume-me", "profile", saved); err != nil {
		t.Fatalf("save: %v", err)
	}

	orch := orchestrator.New()
	defer orch.Close()

	inst, id, resumed, err := mountInstance(ctx, orch, states, decl, "resume-me", config.Default(), nil)
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if id != "resume-me" || !resumed {
		t.Fatalf("expected resumed instance, got id=%q resumed=%v", id, resumed)
	}
	state := inst.State()
	if got, _ := state.Value("theme"); got != "dark" {
		t.Fatalf("expected restored theme, got %v", got)
	}
	if state.Visible("address.city") {
		t.Fatalf("expected restored visibility")
	}

	fresh, freshID, resumed, err := mountInstance(ctx, orch, states, decl, "", config.Default(), nil)
	if err != nil {
		t.Fatalf("mount fresh: %v", err)
	}
	if freshID == "" || resumed {
		t.Fatalf("expected generated id for fresh instance, got %q resumed=%v", freshID, resumed)
	}
	if got, _ := fresh.State().Value("theme"); got != "light" {
		t.Fatalf("expected default theme, got %v", got)
	}
	if diff := cmp.Diff([]string{"resume-me", freshID}, orch.IDs()); diff != "" {
		t.Fatalf("mounted ids mismatch (-want +got):\n%s", diff)
	}
}
