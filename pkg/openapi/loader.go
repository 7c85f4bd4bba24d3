package openapi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// ErrOperationNotFound is returned when a document has no operation with the
// requested id.
var ErrOperationNotFound = errors.New("openapi: operation not found")

// Operation is the subset of an OpenAPI operation the derivation needs.
type Operation struct {
	ID          string
	Method      string
	Path        string
	Summary     string
	Description string

	op *openapi3.Operation
}

// Document is a parsed and validated OpenAPI document.
type Document struct {
	source     string
	operations map[string]Operation
}

// Source returns the location the document was loaded from.
func (d *Document) Source() string {
	if d == nil {
		return ""
	}
	return d.source
}

// Operations lists operation ids in lexical order.
func (d *Document) Operations() []string {
	if d == nil {
		return nil
	}
	ids := make([]string, 0, len(d.operations))
	for id := range d.operations {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Operation returns the operation registered under id.
func (d *Document) Operation(id string) (Operation, error) {
	if d == nil {
		return Operation{}, fmt.Errorf("%w: %q", ErrOperationNotFound, id)
	}
	op, ok := d.operations[id]
	if !ok {
		return Operation{}, fmt.Errorf("%w: %q", ErrOperationNotFound, id)
	}
	return op, nil
}

// LoadFile reads and parses the document at path.
func LoadFile(ctx context.Context, path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	return Load(ctx, data, path)
}

// LoadFS reads and parses the document at path inside fsys.
func LoadFS(ctx context.Context, fsys fs.FS, path string) (*Document, error) {
	if fsys == nil {
		return nil, errors.New("openapi: file system is nil")
	}
	data, err := fs.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("openapi: read %s: %w", path, err)
	}
	return Load(ctx, data, path)
}

// Load parses and validates a JSON or YAML OpenAPI 3 document. External
// references are not followed.
func Load(ctx context.Context, data []byte, source string) (*Document, error) {
	if ctx == nil {
		return nil, errors.New("openapi: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("openapi: document payload is empty")
	}

	loader := &openapi3.Loader{
		Context:               ctx,
		IsExternalRefsAllowed: false,
	}
	spec, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("openapi: load document: %w", err)
	}
	if err := spec.Validate(ctx, openapi3.DisableExamplesValidation()); err != nil {
		return nil, fmt.Errorf("openapi: validate: %w", err)
	}
	if spec.Paths == nil || spec.Paths.Len() == 0 {
		return nil, errors.New("openapi: document does not contain any paths")
	}

	doc := &Document{source: source, operations: make(map[string]Operation)}
	for path, item := range spec.Paths.Map() {
		if item == nil {
			continue
		}
		for method, op := range item.Operations() {
			if op == nil {
				continue
			}
			id := op.OperationID
			if id == "" {
				id = fmt.Sprintf("%s:%s", lower(method), path)
			}
			doc.operations[id] = Operation{
				ID:          id,
				Method:      method,
				Path:        path,
				Summary:     op.Summary,
				Description: op.Description,
				op:          op,
			}
		}
	}
	if len(doc.operations) == 0 {
		return nil, errors.New("openapi: no operations extracted")
	}
	return doc, nil
}
