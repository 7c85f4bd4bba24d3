package form

import (
	"log/slog"

	"github.com/goliatone/go-formflow/pkg/analytics"
	"github.com/goliatone/go-formflow/pkg/model"
)

const defaultMaxCascade = 64

// Option customises an Instance.
type Option func(*Instance)

// WithName sets the instance name reported to analytics and logs.
func WithName(name string) Option {
	return func(i *Instance) {
		i.name = name
	}
}

// WithService installs the lifecycle hooks of the business flow.
func WithService(service Service) Option {
	return func(i *Instance) {
		if service != nil {
			i.service = service
		}
	}
}

// WithRules registers rule definitions.
func WithRules(defs ...RuleDefinition) Option {
	return func(i *Instance) {
		for _, def := range defs {
			if err := i.engine.Register(def); err != nil {
				i.initialiseErr = err
				return
			}
		}
	}
}

// WithRule registers a single rule.
func WithRule(name string, priority int, rule Rule, dependsOn ...string) Option {
	return WithRules(RuleDefinition{Name: name, Priority: priority, Rule: rule, DependsOn: dependsOn})
}

// WithValidators registers validators for a field.
func WithValidators(fieldID string, validators ...Validator) Option {
	return func(i *Instance) {
		if err := i.registry.Register(fieldID, validators...); err != nil {
			i.initialiseErr = err
		}
	}
}

// WithAnalytics installs an analytics sink. Sink failures are recovered and
// logged.
func WithAnalytics(sink analytics.Sink) Option {
	return func(i *Instance) {
		i.rawSink = sink
	}
}

// WithLogger sets the structured logger. Defaults to a discarding logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Instance) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithHistoryLimit caps the undo stack.
func WithHistoryLimit(limit int) Option {
	return func(i *Instance) {
		i.history = NewHistory(limit)
	}
}

// WithPersisted seeds the instance from a persisted payload instead of the
// declaration defaults.
func WithPersisted(p model.Persisted) Option {
	return func(i *Instance) {
		i.state = model.Restore(i.fields, p)
	}
}

// WithMaxCascade bounds the number of follow-up edits one transaction may
// process before it is considered a non-settling rule loop.
func WithMaxCascade(n int) Option {
	return func(i *Instance) {
		if n > 0 {
			i.maxCascade = n
		}
	}
}
