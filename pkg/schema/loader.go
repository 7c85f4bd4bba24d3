// Package schema loads form declarations (field lists plus declarative
// validation constraints) from JSON or YAML documents.
package schema

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
	"github.com/goliatone/go-formflow/pkg/validation"
)

// Declaration describes one form: its fields in declaration order and the
// validation constraints attached to them.
type Declaration struct {
	Name        string
	Label       string
	Source      string
	Fields      []model.FieldDefinition
	Validations map[string][]validation.Rule
}

// Options converts the declaration into form options: the instance name and
// one validator list per constrained field, in declaration order.
func (d Declaration) Options() ([]form.Option, error) {
	opts := []form.Option{form.WithName(d.Name)}
	for _, field := range d.Fields {
		rules := d.Validations[field.ID]
		if len(rules) == 0 {
			continue
		}
		validators, err := validation.BuildAll(rules)
		if err != nil {
			return nil, fmt.Errorf("schema: form %q field %q: %w", d.Name, field.ID, err)
		}
		opts = append(opts, form.WithValidators(field.ID, validators...))
	}
	return opts, nil
}

// New builds a form instance from the declaration. extra options are applied
// after the declared ones.
func (d Declaration) New(extra ...form.Option) (*form.Instance, error) {
	opts, err := d.Options()
	if err != nil {
		return nil, err
	}
	return form.New(d.Fields, append(opts, extra...)...)
}

// Choices returns the allowed values of every field constrained by an enum
// rule. Presentation layers use it to offer a selection instead of free text.
func (d Declaration) Choices() map[string][]string {
	choices := make(map[string][]string)
	for id, rules := range d.Validations {
		for _, rule := range rules {
			if rule.Kind != validation.KindEnum {
				continue
			}
			if values := rule.Values(); len(values) > 0 {
				choices[id] = values
			}
		}
	}
	return choices
}

// Store holds loaded declarations keyed by form name.
type Store struct {
	forms map[string]Declaration
}

// Form returns the declaration registered under name.
func (s *Store) Form(name string) (Declaration, bool) {
	if s == nil {
		return Declaration{}, false
	}
	decl, ok := s.forms[name]
	return decl, ok
}

// Names lists declared form names in lexical order.
func (s *Store) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.forms))
	for name := range s.forms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Empty reports whether the store holds any declarations.
func (s *Store) Empty() bool {
	return s == nil || len(s.forms) == 0
}

type documentFile struct {
	Forms map[string]formFile `json:"forms" yaml:"forms"`
}

type formFile struct {
	Label  string      `json:"label" yaml:"label"`
	Fields []fieldFile `json:"fields" yaml:"fields"`
}

type fieldFile struct {
	model.FieldDefinition `yaml:",inline"`
	Validations           []validation.Rule `json:"validations,omitempty" yaml:"validations,omitempty"`
}

// LoadFS walks fsys and parses every JSON/YAML declaration file. When fsys is
// nil or holds no declaration files, the returned store is empty.
func LoadFS(fsys fs.FS) (*Store, error) {
	store := &Store{forms: make(map[string]Declaration)}
	if fsys == nil {
		return store, nil
	}

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() || !isDeclarationFile(path) {
			return nil
		}

		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("schema: read %s: %w", path, err)
		}
		return store.add(data, path)
	})
	if err != nil {
		return nil, err
	}
	return store, nil
}

// Parse reads a single declaration document.
func Parse(data []byte, source string) (*Store, error) {
	store := &Store{forms: make(map[string]Declaration)}
	if err := store.add(data, source); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *Store) add(data []byte, source string) error {
	doc, err := parseDocument(data, source)
	if err != nil {
		return err
	}

	for rawName, raw := range doc.Forms {
		name := strings.TrimSpace(rawName)
		if name == "" {
			return fmt.Errorf("schema: file %s defines an empty form name", source)
		}
		if existing, exists := s.forms[name]; exists {
			return fmt.Errorf("schema: duplicate form %q (files %s and %s)", name, existing.Source, source)
		}
		decl, err := normaliseForm(raw, name, source)
		if err != nil {
			return err
		}
		s.forms[name] = decl
	}
	return nil
}

func parseDocument(data []byte, source string) (documentFile, error) {
	var doc documentFile
	if len(strings.TrimSpace(string(data))) == 0 {
		return documentFile{}, fmt.Errorf("schema: file %s is empty", source)
	}

	if err := json.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	doc = documentFile{}
	if err := yaml.Unmarshal(data, &doc); err == nil {
		return doc, nil
	}

	return documentFile{}, fmt.Errorf("schema: parse %s: invalid JSON or YAML", source)
}

func normaliseForm(raw formFile, name, source string) (Declaration, error) {
	decl := Declaration{
		Name:        name,
		Label:       raw.Label,
		Source:      source,
		Fields:      make([]model.FieldDefinition, 0, len(raw.Fields)),
		Validations: make(map[string][]validation.Rule),
	}
	for _, field := range raw.Fields {
		def := field.FieldDefinition
		def.ID = strings.TrimSpace(def.ID)
		decl.Fields = append(decl.Fields, def)
		if len(field.Validations) > 0 {
			decl.Validations[def.ID] = append([]validation.Rule(nil), field.Validations...)
		}
	}

	if err := model.ValidateDefinitions(decl.Fields); err != nil {
		return Declaration{}, fmt.Errorf("schema: form %q (file %s): %w", name, source, err)
	}
	if _, err := decl.Options(); err != nil {
		return Declaration{}, fmt.Errorf("schema: file %s: %w", source, err)
	}
	return decl, nil
}

func isDeclarationFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return true
	default:
		return false
	}
}
