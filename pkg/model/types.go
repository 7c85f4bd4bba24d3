package model

import (
	"fmt"
	"strings"
)

// FieldType is an opaque tag the presentation layer uses to pick a renderer.
// The runtime never branches on it.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeInteger FieldType = "integer"
	FieldTypeNumber  FieldType = "number"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
	FieldTypeObject  FieldType = "object"
)

// FieldDefinition declares one field of a form instance. Struct fields are
// annotated so declarations can be loaded from JSON or YAML documents.
type FieldDefinition struct {
	ID       string            `json:"id" yaml:"id"`
	Type     FieldType         `json:"type,omitempty" yaml:"type,omitempty"`
	Label    string            `json:"label,omitempty" yaml:"label,omitempty"`
	Default  any               `json:"default,omitempty" yaml:"default,omitempty"`
	Hidden   bool              `json:"hidden,omitempty" yaml:"hidden,omitempty"`
	Disabled bool              `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ValidateDefinitions rejects empty and duplicate identifiers.
func ValidateDefinitions(fields []FieldDefinition) error {
	seen := make(map[string]struct{}, len(fields))
	for idx, field := range fields {
		id := strings.TrimSpace(field.ID)
		if id == "" {
			return fmt.Errorf("model: field at index %d has an empty id", idx)
		}
		if id != field.ID {
			return fmt.Errorf("model: field id %q has surrounding whitespace", field.ID)
		}
		if _, exists := seen[id]; exists {
			return fmt.Errorf("model: duplicate field id %q", id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// FieldIDs returns the identifiers of fields in declaration order.
func FieldIDs(fields []FieldDefinition) []string {
	if len(fields) == 0 {
		return nil
	}
	ids := make([]string, len(fields))
	for idx, field := range fields {
		ids[idx] = field.ID
	}
	return ids
}
