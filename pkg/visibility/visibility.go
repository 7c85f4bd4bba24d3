// Package visibility builds form rules that toggle visibility and enabled
// status from predicates over the current form values.
package visibility

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Evaluator decides whether a condition holds for the current values of a
// form.
type Evaluator interface {
	Eval(ctx form.Context) (bool, error)
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(ctx form.Context) (bool, error)

// Eval delegates to the underlying function.
func (fn EvaluatorFunc) Eval(ctx form.Context) (bool, error) {
	return fn(ctx)
}

// Condition is a boolean predicate with the fields it reads. The field list
// becomes the DependsOn set of rules built from it.
type Condition struct {
	Evaluator Evaluator
	Fields    []string
}

// Equals holds when field currently equals want.
func Equals(field string, want any) Condition {
	return Condition{
		Fields: []string{field},
		Evaluator: EvaluatorFunc(func(ctx form.Context) (bool, error) {
			got, ok := ctx.Lookup(field)
			if !ok {
				return want == nil, nil
			}
			return model.EqualValues(got, want), nil
		}),
	}
}

// In holds when field currently equals any of values.
func In(field string, values ...any) Condition {
	return Condition{
		Fields: []string{field},
		Evaluator: EvaluatorFunc(func(ctx form.Context) (bool, error) {
			got, ok := ctx.Lookup(field)
			if !ok {
				return false, nil
			}
			for _, value := range values {
				if model.EqualValues(got, value) {
					return true, nil
				}
			}
			return false, nil
		}),
	}
}

// NotEmpty holds when field has a value that is not nil, a blank string, or
// false.
func NotEmpty(field string) Condition {
	return Condition{
		Fields: []string{field},
		Evaluator: EvaluatorFunc(func(ctx form.Context) (bool, error) {
			got, ok := ctx.Lookup(field)
			if !ok || got == nil {
				return false, nil
			}
			switch v := got.(type) {
			case string:
				return strings.TrimSpace(v) != "", nil
			case bool:
				return v, nil
			}
			return true, nil
		}),
	}
}

// Not negates c.
func Not(c Condition) Condition {
	return Condition{
		Fields: c.Fields,
		Evaluator: EvaluatorFunc(func(ctx form.Context) (bool, error) {
			ok, err := c.eval(ctx)
			return !ok, err
		}),
	}
}

// All holds when every condition holds. An empty list holds.
func All(conds ...Condition) Condition {
	return combine(conds, true)
}

// Any holds when at least one condition holds. An empty list does not hold.
func Any(conds ...Condition) Condition {
	return combine(conds, false)
}

func combine(conds []Condition, all bool) Condition {
	var fields []string
	for _, c := range conds {
		fields = append(fields, c.Fields...)
	}
	return Condition{
		Fields: dedupe(fields),
		Evaluator: EvaluatorFunc(func(ctx form.Context) (bool, error) {
			for _, c := range conds {
				ok, err := c.eval(ctx)
				if err != nil {
					return false, err
				}
				if ok != all {
					return !all, nil
				}
			}
			return all, nil
		}),
	}
}

func (c Condition) eval(ctx form.Context) (bool, error) {
	if c.Evaluator == nil {
		return true, nil
	}
	return c.Evaluator.Eval(ctx)
}

// ShowWhen returns a rule that shows targets while cond holds and hides them
// otherwise.
func ShowWhen(name string, priority int, cond Condition, targets ...string) form.RuleDefinition {
	return toggle(name, priority, cond, targets, form.Context.Show, form.Context.Hide)
}

// EnableWhen returns a rule that enables targets while cond holds and
// disables them otherwise.
func EnableWhen(name string, priority int, cond Condition, targets ...string) form.RuleDefinition {
	return toggle(name, priority, cond, targets, form.Context.Enable, form.Context.Disable)
}

type flagSetter func(form.Context, string) error

func toggle(name string, priority int, cond Condition, targets []string, on, off flagSetter) form.RuleDefinition {
	targets = append([]string(nil), targets...)
	return form.RuleDefinition{
		Name:      name,
		Priority:  priority,
		DependsOn: dedupe(cond.Fields),
		Rule: form.RuleFunc(func(ctx form.Context) error {
			ok, err := cond.eval(ctx)
			if err != nil {
				return fmt.Errorf("visibility: evaluate %s: %w", name, err)
			}
			apply := off
			if ok {
				apply = on
			}
			for _, target := range targets {
				if err := apply(ctx, target); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func dedupe(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if _, ok := seen[field]; ok {
			continue
		}
		seen[field] = struct{}{}
		out = append(out, field)
	}
	return out
}
