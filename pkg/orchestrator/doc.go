// Package orchestrator keeps a registry of named form instances so services
// can reach sibling forms through a controlled entry point. Instances never
// synchronise implicitly: every cross-form read or edit goes through
// Orchestrator.Context.
package orchestrator
