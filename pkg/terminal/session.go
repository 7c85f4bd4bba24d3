// Package terminal drives a form instance from an interactive terminal. A
// Session prompts for every visible and enabled field in declaration order,
// writing each answer through the form Context so rules, hooks and validators
// run as they would for any other presentation layer, then submits.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Metadata keys read from field declarations.
const (
	MetadataHelp   = "help"
	MetadataSecret = "secret"
	MetadataInput  = "input"
)

// Session prompts for form values on a terminal.
type Session struct {
	driver  PromptDriver
	logger  *slog.Logger
	theme   Theme
	choices map[string][]string
	secrets map[string]struct{}
}

// New constructs a session with defaults (survey driver on stdout).
func New(options ...Option) (*Session, error) {
	s := &Session{
		driver:  NewSurveyDriver(nil),
		logger:  slog.New(slog.DiscardHandler),
		theme:   Theme{ErrorPrefix: "! "},
		choices: make(map[string][]string),
		secrets: make(map[string]struct{}),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.driver == nil {
		return nil, ErrNoDriver
	}
	return s, nil
}

// Run collects values for inst and submits it. A rejected submission lists
// the errors and offers another pass; declining returns the last result and
// submission error, if any.
func (s *Session) Run(ctx context.Context, inst *form.Instance) (form.SubmitResult, error) {
	if ctx == nil {
		return form.SubmitResult{}, errors.New("terminal: context is required")
	}
	if inst == nil {
		return form.SubmitResult{}, errors.New("terminal: form instance is required")
	}

	fc := inst.Context()
	for {
		if err := s.Collect(ctx, fc); err != nil {
			return form.SubmitResult{}, err
		}

		result, submitErr := inst.Submit(ctx)
		if submitErr != nil {
			var rejected *form.SubmissionError
			if !errors.As(submitErr, &rejected) {
				return result, submitErr
			}
			s.logger.Info("form submission rejected", slog.String("form", inst.Name()), slog.Any("error", submitErr))
		}
		if result.Submitted {
			if err := s.info(ctx, "Submitted."); err != nil {
				return result, err
			}
			return result, nil
		}

		if err := s.report(ctx, fc, submitErr); err != nil {
			return result, err
		}
		retry, err := s.driver.Ask(ctx, Question{
			Kind:    PromptConfirm,
			Label:   "Edit and submit again?",
			Confirm: true,
		})
		if err != nil {
			return result, err
		}
		if !retry.Confirm {
			if submitErr != nil {
				return result, submitErr
			}
			return result, ErrAborted
		}
	}
}

// Collect prompts once for every field that is visible and enabled when its
// turn comes. Visibility is re-read after each answer so rules that reveal or
// hide later fields take effect immediately. An answer that fails the field's
// validators is reported and asked again.
func (s *Session) Collect(ctx context.Context, fc form.Context) error {
	if fc == nil {
		return errors.New("terminal: form context is required")
	}
	for _, field := range fc.Fields() {
		if err := ctx.Err(); err != nil {
			return err
		}
		state := fc.State()
		if !state.Visible(field.ID) || !state.IsEnabled(field.ID) || field.Type == model.FieldTypeObject {
			continue
		}
		if err := s.collectField(ctx, fc, field); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) collectField(ctx context.Context, fc form.Context, field model.FieldDefinition) error {
	fc.Focus(field.ID)
	for {
		current, _ := fc.Lookup(field.ID)
		value, err := s.prompt(ctx, field, current)
		if err != nil {
			var invalid *inputError
			if !errors.As(err, &invalid) {
				return err
			}
			if err := s.fail(ctx, fmt.Sprintf("Invalid %s: %v", displayLabel(field), invalid.err)); err != nil {
				return err
			}
			continue
		}

		if err := fc.SetValue(field.ID, value); err != nil {
			return err
		}
		if _, err := fc.ValidateField(ctx, field.ID); err != nil {
			return err
		}
		messages := fc.State().FieldErrors(field.ID)
		if len(messages) == 0 {
			return nil
		}
		for _, msg := range messages {
			if err := s.fail(ctx, fmt.Sprintf("%s %s", displayLabel(field), msg)); err != nil {
				return err
			}
		}
	}
}

func (s *Session) prompt(ctx context.Context, field model.FieldDefinition, current any) (any, error) {
	q := s.question(field, current)
	answer, err := s.driver.Ask(ctx, q)
	if err != nil {
		return nil, err
	}
	return decodeAnswer(field, q, answer)
}

// question maps a field declaration and its current value to a prompt.
// Numeric fields always take free text; choices turn other fields into a
// selection.
func (s *Session) question(field model.FieldDefinition, current any) Question {
	q := Question{
		FieldID: field.ID,
		Label:   displayLabel(field),
		Help:    field.Metadata[MetadataHelp],
		Options: s.choices[field.ID],
	}
	switch {
	case field.Type == model.FieldTypeBoolean:
		q.Kind = PromptConfirm
		q.Confirm, _ = current.(bool)
	case field.Type == model.FieldTypeArray && len(q.Options) > 0:
		q.Kind = PromptMultiSelect
		q.Picked = stringSlice(current)
	case field.Type == model.FieldTypeArray:
		q.Label += " (comma separated)"
		q.Default = strings.Join(stringSlice(current), ", ")
	case field.Type == model.FieldTypeInteger || field.Type == model.FieldTypeNumber:
		q.Default = stringValue(current)
	case len(q.Options) > 0:
		q.Kind = PromptSelect
		q.Default = stringValue(current)
	case s.isSecret(field):
		q.Kind = PromptSecret
	case field.Metadata[MetadataInput] == "textarea":
		q.Kind = PromptMultiline
		q.Default = stringValue(current)
	default:
		q.Default = stringValue(current)
	}
	return q
}

// decodeAnswer converts a reply to the value stored for field. Replies that
// cannot be converted come back as *inputError.
func decodeAnswer(field model.FieldDefinition, q Question, answer Answer) (any, error) {
	switch q.Kind {
	case PromptConfirm:
		return answer.Confirm, nil
	case PromptMultiSelect:
		return toAnySlice(pickedOptions(q.Options, answer.Picked)), nil
	case PromptSelect:
		if !slices.Contains(q.Options, answer.Text) {
			return nil, &inputError{err: fmt.Errorf("%q is not one of the choices", answer.Text)}
		}
		return answer.Text, nil
	}

	switch field.Type {
	case model.FieldTypeArray:
		return splitList(answer.Text), nil
	case model.FieldTypeInteger, model.FieldTypeNumber:
		return parseNumber(field.Type, answer.Text)
	}
	return answer.Text, nil
}

func parseNumber(kind model.FieldType, raw string) (any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if kind == model.FieldTypeInteger {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, &inputError{err: fmt.Errorf("expected a whole number, got %q", raw)}
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &inputError{err: fmt.Errorf("expected a number, got %q", raw)}
	}
	return f, nil
}

func (s *Session) report(ctx context.Context, fc form.Context, submitErr error) error {
	if submitErr != nil {
		if err := s.fail(ctx, submitErr.Error()); err != nil {
			return err
		}
	}
	labels := make(map[string]string)
	for _, field := range fc.Fields() {
		labels[field.ID] = displayLabel(field)
	}
	for _, formErr := range fc.State().Errors() {
		var line string
		switch e := formErr.(type) {
		case model.FieldError:
			line = fmt.Sprintf("%s %s", labels[e.FieldID], e.Text)
		case model.GlobalError:
			line = e.Text
		default:
			continue
		}
		if err := s.fail(ctx, line); err != nil {
			return err
		}
	}
	return nil
}

func (s *Session) isSecret(field model.FieldDefinition) bool {
	if _, ok := s.secrets[field.ID]; ok {
		return true
	}
	return strings.EqualFold(field.Metadata[MetadataSecret], "true")
}

func (s *Session) info(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.InfoPrefix+msg)
}

func (s *Session) fail(ctx context.Context, msg string) error {
	return s.driver.Info(ctx, s.theme.ErrorPrefix+msg)
}

// inputError marks an answer that could not be converted to the field type.
type inputError struct {
	err error
}

func (e *inputError) Error() string {
	return "terminal: invalid input: " + e.err.Error()
}

func (e *inputError) Unwrap() error {
	return e.err
}

func displayLabel(field model.FieldDefinition) string {
	if field.Label != "" {
		return field.Label
	}
	return field.ID
}

func stringValue(value any) string {
	if value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

func stringSlice(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, stringValue(item))
		}
		return out
	}
	return nil
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}

func splitList(raw string) []any {
	var out []any
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
