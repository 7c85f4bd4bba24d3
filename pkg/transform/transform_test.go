package transform_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/transform"
)

func TestExpand(t *testing.T) {
	t.Parallel()

	got, err := transform.Expand(map[string]any{
		"name":            "Rex",
		"owner.email":     "ada@example.com",
		"owner.phone":     "555",
		"tags.1":          "friendly",
		"tags.0":          "dog",
		"vaccines.0.name": "rabies",
	})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	want := map[string]any{
		"name": "Rex",
		"owner": map[string]any{
			"email": "ada@example.com",
			"phone": "555",
		},
		"tags":     []any{"dog", "friendly"},
		"vaccines": []any{map[string]any{"name": "rabies"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("expand mismatch (-want +got):\n%s", diff)
	}

	if value, ok := transform.Get(got, "vaccines.0.name"); !ok || value != "rabies" {
		t.Fatalf("expected rabies, got %v (ok=%v)", value, ok)
	}
	if _, ok := transform.Get(got, "tags.5"); ok {
		t.Fatalf("expected out of range lookup to fail")
	}
}

func TestExpand_RejectsOverlapAndBadPaths(t *testing.T) {
	t.Parallel()

	bad := []map[string]any{
		{"owner": "x", "owner.email": "y"},
		{"tags.0": "a", "tags.name": "b"},
		{"a..b": 1},
		{"list.-1": 1},
	}
	for _, values := range bad {
		if _, err := transform.Expand(values); err == nil {
			t.Fatalf("expected error for %v", values)
		}
	}
}

func TestFlatten_RoundTrip(t *testing.T) {
	t.Parallel()

	flat := map[string]any{
		"name":        "Rex",
		"owner.email": "ada@example.com",
		"tags.0":      "dog",
		"tags.1":      "friendly",
	}
	nested, err := transform.Expand(flat)
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if diff := cmp.Diff(flat, transform.Flatten(nested)); diff != "" {
		t.Fatalf("flatten mismatch (-want +got):\n%s", diff)
	}
}

type pet struct {
	Name  string   `json:"name"`
	Age   int      `json:"age"`
	Tags  []string `json:"tags"`
	Owner struct {
		Email string `json:"email"`
	} `json:"owner"`
}

func TestDecode(t *testing.T) {
	t.Parallel()

	var out pet
	err := transform.Decode(map[string]any{
		"name":        "Rex",
		"age":         "4",
		"tags.0":      "dog",
		"owner.email": "ada@example.com",
	}, &out)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Name != "Rex" || out.Age != 4 || out.Owner.Email != "ada@example.com" {
		t.Fatalf("unexpected decode result %+v", out)
	}
	if diff := cmp.Diff([]string{"dog"}, out.Tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_Strict(t *testing.T) {
	t.Parallel()

	var out pet
	err := transform.Decode(map[string]any{"name": "Rex", "colour": "brown"}, &out, transform.WithStrict())
	if err == nil {
		t.Fatalf("expected unused key error")
	}
}
