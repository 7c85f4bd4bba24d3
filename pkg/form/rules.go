package form

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Rule reacts to the current state by issuing context mutations. Rules must
// be idempotent: applying a rule twice to the same state changes nothing the
// second time.
type Rule interface {
	Apply(Context) error
}

// RuleFunc adapts a function into a Rule.
type RuleFunc func(Context) error

// Apply delegates to the underlying function.
func (fn RuleFunc) Apply(ctx Context) error {
	return fn(ctx)
}

// RuleDefinition pairs a rule with its priority. Lower priorities run first;
// higher priorities run last and therefore win conflicting writes. DependsOn,
// when set, limits re-evaluation to edits of the listed fields.
type RuleDefinition struct {
	Name      string
	Priority  int
	Rule      Rule
	DependsOn []string
}

type ruleEntry struct {
	def   RuleDefinition
	order int
}

// Engine holds the rule definitions of one form instance.
type Engine struct {
	mu    sync.RWMutex
	rules []ruleEntry
}

// NewEngine constructs an empty rule engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Register appends a rule definition. Ties in priority preserve registration
// order.
func (e *Engine) Register(def RuleDefinition) error {
	if def.Rule == nil {
		return fmt.Errorf("%w: rule %q has no callable", ErrConfiguration, def.Name)
	}
	def.Name = strings.TrimSpace(def.Name)
	def.DependsOn = append([]string(nil), def.DependsOn...)

	e.mu.Lock()
	defer e.mu.Unlock()

	e.rules = append(e.rules, ruleEntry{def: def, order: len(e.rules)})
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (e *Engine) MustRegister(def RuleDefinition) {
	if err := e.Register(def); err != nil {
		panic(err)
	}
}

// Len reports the number of registered rules.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rules)
}

// Definitions returns the registered rules in evaluation order.
func (e *Engine) Definitions() []RuleDefinition {
	entries := e.sorted()
	out := make([]RuleDefinition, len(entries))
	for idx, entry := range entries {
		out[idx] = entry.def
	}
	return out
}

// Apply runs every rule against ctx in ascending priority. The first failing
// rule aborts the pass and is returned as a *RuleError.
func (e *Engine) Apply(ctx Context) error {
	return e.apply(ctx, func(RuleDefinition) bool { return true })
}

// ApplyFor runs the rules affected by an edit of fieldID: rules without
// declared dependencies plus rules that list fieldID. Priority order is kept
// within the subset.
func (e *Engine) ApplyFor(ctx Context, fieldID string) error {
	return e.apply(ctx, func(def RuleDefinition) bool {
		if len(def.DependsOn) == 0 {
			return true
		}
		for _, dep := range def.DependsOn {
			if dep == fieldID {
				return true
			}
		}
		return false
	})
}

// References returns every field named in a DependsOn list.
func (e *Engine) References() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var refs []string
	for _, entry := range e.rules {
		refs = append(refs, entry.def.DependsOn...)
	}
	return refs
}

func (e *Engine) apply(ctx Context, include func(RuleDefinition) bool) error {
	for _, entry := range e.sorted() {
		if !include(entry.def) {
			continue
		}
		if err := runRule(ctx, entry.def); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) sorted() []ruleEntry {
	e.mu.RLock()
	rules := append([]ruleEntry(nil), e.rules...)
	e.mu.RUnlock()

	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].def.Priority == rules[j].def.Priority {
			return rules[i].order < rules[j].order
		}
		return rules[i].def.Priority < rules[j].def.Priority
	})
	return rules
}

func runRule(ctx Context, def RuleDefinition) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &RuleError{Rule: def.Name, Priority: def.Priority, Err: fmt.Errorf("panic: %v", recovered)}
		}
	}()
	if applyErr := def.Rule.Apply(ctx); applyErr != nil {
		var ruleErr *RuleError
		if errors.As(applyErr, &ruleErr) {
			return applyErr
		}
		return &RuleError{Rule: def.Name, Priority: def.Priority, Err: applyErr}
	}
	return nil
}
