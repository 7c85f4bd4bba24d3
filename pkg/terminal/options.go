package terminal

import "log/slog"

// Option configures a Session.
type Option func(*Session)

// WithPromptDriver overrides the prompt driver used by the session.
func WithPromptDriver(driver PromptDriver) Option {
	return func(s *Session) {
		if driver != nil {
			s.driver = driver
		}
	}
}

// WithChoices offers a selection for the given fields instead of free text.
// Array fields with choices become a multi-select.
func WithChoices(choices map[string][]string) Option {
	return func(s *Session) {
		for id, values := range choices {
			if len(values) == 0 {
				continue
			}
			s.choices[id] = append([]string(nil), values...)
		}
	}
}

// WithSecret masks input for the given fields.
func WithSecret(ids ...string) Option {
	return func(s *Session) {
		for _, id := range ids {
			s.secrets[id] = struct{}{}
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTheme applies optional message prefixes.
func WithTheme(theme Theme) Option {
	return func(s *Session) {
		s.theme = theme
	}
}

// Theme captures optional prefixes the session applies when printing
// messages.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}
