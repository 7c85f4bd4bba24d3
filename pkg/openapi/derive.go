package openapi

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

const extensionNamespace = "x-formflow"

var preferredMediaTypes = []string{"application/json", "application/x-www-form-urlencoded", "multipart/form-data"}

// Derive builds a form declaration from the request body of operation id.
// Nested object properties become dotted field identifiers; arrays and
// scalars become single fields. Read-only properties are skipped.
func Derive(doc *Document, id string) (schema.Declaration, error) {
	op, err := doc.Operation(id)
	if err != nil {
		return schema.Declaration{}, err
	}

	decl := schema.Declaration{
		Name:        op.ID,
		Label:       op.Summary,
		Source:      doc.Source(),
		Validations: make(map[string][]validation.Rule),
	}

	body := requestSchema(op.op)
	if body == nil {
		return decl, nil
	}
	if err := collectFields(&decl, "", body); err != nil {
		return schema.Declaration{}, fmt.Errorf("openapi: operation %q: %w", id, err)
	}
	if err := model.ValidateDefinitions(decl.Fields); err != nil {
		return schema.Declaration{}, fmt.Errorf("openapi: operation %q: %w", id, err)
	}
	return decl, nil
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op == nil || op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	content := op.RequestBody.Value.Content
	for _, mediaType := range preferredMediaTypes {
		if mt, ok := content[mediaType]; ok && mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	keys := make([]string, 0, len(content))
	for key := range content {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if mt := content[key]; mt != nil && mt.Schema != nil {
			return mt.Schema.Value
		}
	}
	return nil
}

func collectFields(decl *schema.Declaration, prefix string, object *openapi3.Schema) error {
	required := make(map[string]struct{}, len(object.Required))
	for _, name := range object.Required {
		required[name] = struct{}{}
	}

	names := make([]string, 0, len(object.Properties))
	for name := range object.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		ref := object.Properties[name]
		if ref == nil || ref.Value == nil {
			continue
		}
		prop := ref.Value
		if prop.ReadOnly {
			continue
		}
		id := name
		if prefix != "" {
			id = prefix + "." + name
		}

		if schemaType(prop) == string(model.FieldTypeObject) && len(prop.Properties) > 0 {
			if err := collectFields(decl, id, prop); err != nil {
				return err
			}
			continue
		}

		_, isRequired := required[name]
		field, rules := fieldFromSchema(id, name, prop, isRequired)
		decl.Fields = append(decl.Fields, field)
		if len(rules) > 0 {
			decl.Validations[id] = rules
		}
	}
	return nil
}

func fieldFromSchema(id, name string, prop *openapi3.Schema, required bool) (model.FieldDefinition, []validation.Rule) {
	field := model.FieldDefinition{
		ID:      id,
		Type:    model.FieldType(schemaType(prop)),
		Label:   prop.Title,
		Default: prop.Default,
	}
	if field.Type == "" {
		field.Type = model.FieldTypeString
	}
	if field.Label == "" {
		field.Label = DefaultLabeler(name)
	}

	metadata := make(map[string]string)
	if prop.Description != "" {
		metadata["description"] = prop.Description
	}
	if prop.Format != "" {
		metadata["format"] = prop.Format
	}
	applyExtensions(&field, metadata, prop.Extensions)
	if len(metadata) > 0 {
		field.Metadata = metadata
	}

	return field, rulesFromSchema(prop, required)
}

func rulesFromSchema(prop *openapi3.Schema, required bool) []validation.Rule {
	var rules []validation.Rule
	if required {
		rules = append(rules, validation.Rule{Kind: validation.KindRequired})
	}
	if prop.MinLength > 0 {
		rules = append(rules, validation.Rule{
			Kind:   validation.KindMinLength,
			Params: map[string]string{"value": strconv.FormatUint(prop.MinLength, 10)},
		})
	}
	if prop.MaxLength != nil {
		rules = append(rules, validation.Rule{
			Kind:   validation.KindMaxLength,
			Params: map[string]string{"value": strconv.FormatUint(*prop.MaxLength, 10)},
		})
	}
	if prop.Pattern != "" {
		rules = append(rules, validation.Rule{
			Kind:   validation.KindPattern,
			Params: map[string]string{"pattern": prop.Pattern},
		})
	}
	if prop.Min != nil {
		rules = append(rules, boundRule(validation.KindMin, *prop.Min, isExclusive(prop.ExclusiveMin)))
	}
	if prop.Max != nil {
		rules = append(rules, boundRule(validation.KindMax, *prop.Max, isExclusive(prop.ExclusiveMax)))
	}
	if len(prop.Enum) > 0 {
		values := make([]string, 0, len(prop.Enum))
		for _, value := range prop.Enum {
			values = append(values, fmt.Sprint(value))
		}
		rules = append(rules, validation.Rule{
			Kind:   validation.KindEnum,
			Params: map[string]string{"values": strings.Join(values, ",")},
		})
	}
	if prop.Format == "email" {
		rules = append(rules, validation.Rule{Kind: validation.KindEmail})
	}
	return rules
}

func isExclusive(flag any) bool {
	switch v := flag.(type) {
	case bool:
		return v
	case *bool:
		return v != nil && *v
	default:
		return false
	}
}

func boundRule(kind string, value float64, exclusive bool) validation.Rule {
	params := map[string]string{"value": strconv.FormatFloat(value, 'f', -1, 64)}
	if exclusive {
		params["exclusive"] = "true"
	}
	return validation.Rule{Kind: kind, Params: params}
}

// applyExtensions reads the x-formflow map: label, hidden and disabled map onto
// the declaration, every other scalar lands in metadata.
func applyExtensions(field *model.FieldDefinition, metadata map[string]string, extensions map[string]any) {
	raw, ok := extensions[extensionNamespace].(map[string]any)
	if !ok {
		return
	}
	for key, value := range raw {
		switch key {
		case "label":
			if label, ok := value.(string); ok && label != "" {
				field.Label = label
			}
		case "hidden":
			field.Hidden, _ = value.(bool)
		case "disabled":
			field.Disabled, _ = value.(bool)
		default:
			switch value.(type) {
			case string, bool, float64, int:
				metadata[key] = fmt.Sprint(value)
			}
		}
	}
}

func schemaType(s *openapi3.Schema) string {
	if s == nil || s.Type == nil {
		return ""
	}
	values := s.Type.Slice()
	for _, value := range values {
		if value != "null" {
			return value
		}
	}
	return ""
}
