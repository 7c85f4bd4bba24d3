// Package render maps server side error payloads onto form errors so the
// presentation layer can show them next to the offending fields.
package render
