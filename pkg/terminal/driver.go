package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/AlecAivazis/survey/v2"
	surveyterm "github.com/AlecAivazis/survey/v2/terminal"
)

// PromptKind selects how a question is asked.
type PromptKind int

const (
	PromptText PromptKind = iota
	PromptSecret
	PromptMultiline
	PromptConfirm
	PromptSelect
	PromptMultiSelect
)

// Question is a single prompt built from a field declaration. Default seeds
// text and select prompts, Confirm seeds yes/no prompts and Picked seeds
// multi-selects.
type Question struct {
	FieldID string
	Kind    PromptKind
	Label   string
	Help    string
	Default string
	Confirm bool
	Options []string
	Picked  []string
}

// Answer is the reply to a Question. Only the member matching the question
// kind is meaningful.
type Answer struct {
	Text    string
	Confirm bool
	Picked  []string
}

// PromptDriver abstracts the terminal so sessions can be driven by a script
// in tests or by another prompt library.
type PromptDriver interface {
	Ask(ctx context.Context, q Question) (Answer, error)
	Info(ctx context.Context, msg string) error
}

type surveyDriver struct {
	out io.Writer
}

// NewSurveyDriver returns the interactive driver backed by survey prompts.
// Informational messages are written to out, or stdout when out is nil.
func NewSurveyDriver(out io.Writer) PromptDriver {
	if out == nil {
		out = os.Stdout
	}
	return &surveyDriver{out: out}
}

func (d *surveyDriver) Ask(ctx context.Context, q Question) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Answer{}, err
	}

	var (
		answer Answer
		err    error
	)
	switch q.Kind {
	case PromptConfirm:
		err = survey.AskOne(&survey.Confirm{Message: q.Label, Help: q.Help, Default: q.Confirm}, &answer.Confirm)
	case PromptSelect:
		prompt := &survey.Select{Message: q.Label, Help: q.Help, Options: q.Options}
		if slices.Contains(q.Options, q.Default) {
			prompt.Default = q.Default
		}
		err = survey.AskOne(prompt, &answer.Text)
	case PromptMultiSelect:
		prompt := &survey.MultiSelect{Message: q.Label, Help: q.Help, Options: q.Options}
		if picked := pickedOptions(q.Options, q.Picked); len(picked) > 0 {
			prompt.Default = picked
		}
		err = survey.AskOne(prompt, &answer.Picked)
	case PromptSecret:
		err = survey.AskOne(&survey.Password{Message: q.Label, Help: q.Help}, &answer.Text)
	case PromptMultiline:
		err = survey.AskOne(&survey.Multiline{Message: q.Label, Help: q.Help, Default: q.Default}, &answer.Text)
	default:
		err = survey.AskOne(&survey.Input{Message: q.Label, Help: q.Help, Default: q.Default}, &answer.Text)
	}

	if errors.Is(err, surveyterm.InterruptErr) {
		return Answer{}, ErrAborted
	}
	if err != nil {
		return Answer{}, fmt.Errorf("terminal: ask %q: %w", q.Label, err)
	}
	return answer, nil
}

func (d *surveyDriver) Info(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(d.out, msg)
	return err
}

// pickedOptions keeps the picked values that are options, in option order.
func pickedOptions(options, picked []string) []string {
	var out []string
	for _, option := range options {
		if slices.Contains(picked, option) {
			out = append(out, option)
		}
	}
	return out
}
