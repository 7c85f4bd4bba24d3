// Package form implements the runtime behind one dynamic form instance: an
// owned cell holding the current immutable model.FormState, the Context
// façade handed to rules, validators and services, the priority ordered rule
// Engine, the validator Registry with per-field run sequencing, and the
// undo/redo History.
//
// Edits are serialized per Instance. A SetValue call commits the value,
// re-applies the rules touching that field in ascending priority, then runs
// the Service OnFieldChanged hook before the next edit is processed. Values
// set by rules or hooks while an edit is in progress are committed at once and
// processed as follow-up edits of the same transaction.
//
// Validators run concurrently across fields and publish their aggregate in a
// single SetAllErrors step. Each field run carries a sequence number; results
// older than the newest run issued for a field are dropped on arrival.
package form
