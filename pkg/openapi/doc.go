// Package openapi derives form declarations from OpenAPI 3 documents: the
// request body of an operation becomes the field list and its schema
// constraints become validation rules.
package openapi
