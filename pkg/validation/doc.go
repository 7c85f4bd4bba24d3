// Package validation provides ready-made form.Validator constructors for the
// common field constraints, plus Build which turns declarative Rule entries
// (as loaded by pkg/schema or derived by pkg/openapi) into validators.
//
// Every validator treats an absent or empty value as valid except Required,
// so constraints compose: Required plus MinLength reports one error for an
// empty field, not two.
package validation
