package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/config"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/openapi"
	"github.com/goliatone/go-formflow/pkg/schema"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// declarationSource names where a command reads its form from: an OpenAPI
// operation when operation is set, otherwise a declaration in the forms
// directory.
type declarationSource struct {
	openAPI   string
	operation string
	form      string
}

func resolveDeclaration(ctx context.Context, cfg *config.Config, src declarationSource) (schema.Declaration, error) {
	if src.operation != "" {
		path := src.openAPI
		if path == "" {
			path = cfg.OpenAPI
		}
		if path == "" {
			return schema.Declaration{}, fmt.Errorf("--openapi is required with --operation")
		}
		doc, err := openapi.LoadFile(ctx, path)
		if err != nil {
			return schema.Declaration{}, err
		}
		return openapi.Derive(doc, src.operation)
	}

	store, err := loadForms(cfg.FormsDir)
	if err != nil {
		return schema.Declaration{}, err
	}
	decl, ok := store.Form(src.form)
	if !ok {
		return schema.Declaration{}, fmt.Errorf("form %q not found in %s (available: %s)", src.form, cfg.FormsDir, strings.Join(store.Names(), ", "))
	}
	return decl, nil
}

func loadForms(dir string) (*schema.Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("forms directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("forms directory: %s is not a directory", dir)
	}
	return schema.LoadFS(os.DirFS(dir))
}

type declarationView struct {
	Name   string      `json:"name" yaml:"name"`
	Label  string      `json:"label,omitempty" yaml:"label,omitempty"`
	Source string      `json:"source,omitempty" yaml:"source,omitempty"`
	Fields []fieldView `json:"fields" yaml:"fields"`
}

type fieldView struct {
	model.FieldDefinition `yaml:",inline"`
	Validations           []validation.Rule `json:"validations,omitempty" yaml:"validations,omitempty"`
}

func viewOf(decl schema.Declaration) declarationView {
	view := declarationView{
		Name:   decl.Name,
		Label:  decl.Label,
		Source: decl.Source,
		Fields: make([]fieldView, 0, len(decl.Fields)),
	}
	for _, field := range decl.Fields {
		view.Fields = append(view.Fields, fieldView{
			FieldDefinition: field,
			Validations:     decl.Validations[field.ID],
		})
	}
	return view
}

func encode(format string, value any) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "yaml", "yml":
		return yaml.Marshal(value)
	case "json":
		return json.MarshalIndent(value, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported output format %q (use yaml or json)", format)
	}
}
