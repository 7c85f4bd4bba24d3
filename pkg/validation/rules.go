package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/form"
)

// Rule kinds understood by Build. Numeric bounds and length limits encode
// their threshold in Params["value"]; pattern rules keep the expression in
// Params["pattern"]; enum rules list allowed values in Params["values"],
// comma separated.
const (
	KindRequired  = "required"
	KindMin       = "min"
	KindMax       = "max"
	KindMinLength = "minLength"
	KindMaxLength = "maxLength"
	KindPattern   = "pattern"
	KindEnum      = "enum"
	KindEmail     = "email"
)

// Rule is a declarative validation constraint attached to a field.
type Rule struct {
	Kind    string            `json:"kind" yaml:"kind"`
	Params  map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
	Message string            `json:"message,omitempty" yaml:"message,omitempty"`
}

// Values splits Params["values"] into its trimmed, non-empty entries.
func (r Rule) Values() []string {
	raw := r.Params["values"]
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Build turns rule into a validator.
func Build(rule Rule) (form.Validator, error) {
	switch rule.Kind {
	case KindRequired:
		return Required(rule.Message), nil
	case KindMin, KindMax:
		value, err := floatParam(rule, "value")
		if err != nil {
			return nil, err
		}
		bounds := Bounds{}
		if rule.Kind == KindMin {
			bounds.Min = &value
			bounds.ExclusiveMin = rule.Params["exclusive"] == "true"
		} else {
			bounds.Max = &value
			bounds.ExclusiveMax = rule.Params["exclusive"] == "true"
		}
		return Range(bounds, rule.Message), nil
	case KindMinLength, KindMaxLength:
		raw := strings.TrimSpace(rule.Params["value"])
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("validation: rule %s: invalid length %q", rule.Kind, raw)
		}
		if rule.Kind == KindMinLength {
			return MinLength(n, rule.Message), nil
		}
		return MaxLength(n, rule.Message), nil
	case KindPattern:
		expr := rule.Params["pattern"]
		if expr == "" {
			return nil, fmt.Errorf("validation: rule %s: pattern is required", rule.Kind)
		}
		return Pattern(expr, rule.Message)
	case KindEnum:
		allowed := rule.Values()
		if len(allowed) == 0 {
			return nil, fmt.Errorf("validation: rule %s: values are required", rule.Kind)
		}
		return OneOf(allowed, rule.Message), nil
	case KindEmail:
		return Email(rule.Message), nil
	default:
		return nil, fmt.Errorf("validation: unknown rule kind %q", rule.Kind)
	}
}

// BuildAll builds every rule, preserving order.
func BuildAll(rules []Rule) ([]form.Validator, error) {
	if len(rules) == 0 {
		return nil, nil
	}
	out := make([]form.Validator, 0, len(rules))
	for idx, rule := range rules {
		v, err := Build(rule)
		if err != nil {
			return nil, fmt.Errorf("validation: rule %d: %w", idx, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func floatParam(rule Rule, key string) (float64, error) {
	raw := strings.TrimSpace(rule.Params[key])
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("validation: rule %s: invalid %s %q", rule.Kind, key, raw)
	}
	return value, nil
}
