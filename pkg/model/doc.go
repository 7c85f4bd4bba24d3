// Package model defines the data the form runtime operates on: field
// declarations, the immutable FormState snapshot and the FormError union.
// Nothing in this package mutates a FormState in place; every With* method
// returns a fresh instance so readers holding an older pointer keep a valid
// snapshot. Field identifiers are flat opaque keys. A dotted identifier such
// as "address.city" is a label, never a path.
package model
