// Package analytics defines the optional sink form instances notify about
// user activity. Notifications are best effort: the runtime never reads a
// result back and a failing sink never breaks an edit.
package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Sink receives form activity notifications.
type Sink interface {
	FieldChanged(form, field string, value any)
	FieldFocused(form, field string)
	StepChanged(form, step string)
	Submitted(form string, success bool)
}

// Nop discards every notification.
type Nop struct{}

func (Nop) FieldChanged(string, string, any) {}
func (Nop) FieldFocused(string, string)      {}
func (Nop) StepChanged(string, string)       {}
func (Nop) Submitted(string, bool)           {}

// Safe wraps sink so panics are recovered and logged instead of propagated.
// A nil sink yields Nop.
func Safe(sink Sink, logger *slog.Logger) Sink {
	if sink == nil {
		return Nop{}
	}
	if _, ok := sink.(Nop); ok {
		return sink
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &safeSink{sink: sink, logger: logger}
}

type safeSink struct {
	sink   Sink
	logger *slog.Logger
}

func (s *safeSink) FieldChanged(form, field string, value any) {
	defer s.recover("fieldChanged", form)
	s.sink.FieldChanged(form, field, value)
}

func (s *safeSink) FieldFocused(form, field string) {
	defer s.recover("fieldFocused", form)
	s.sink.FieldFocused(form, field)
}

func (s *safeSink) StepChanged(form, step string) {
	defer s.recover("stepChanged", form)
	s.sink.StepChanged(form, step)
}

func (s *safeSink) Submitted(form string, success bool) {
	defer s.recover("submitted", form)
	s.sink.Submitted(form, success)
}

func (s *safeSink) recover(event, form string) {
	if recovered := recover(); recovered != nil {
		s.logger.Warn("analytics sink failed",
			slog.String("event", event),
			slog.String("form", form),
			slog.String("error", fmt.Sprint(recovered)),
		)
	}
}

// Event is one notification captured by a Recorder.
type Event struct {
	Kind    string
	Form    string
	Field   string
	Step    string
	Value   any
	Success bool
}

// Recorder keeps every notification in memory, in arrival order.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) FieldChanged(form, field string, value any) {
	r.add(Event{Kind: "fieldChanged", Form: form, Field: field, Value: value})
}

func (r *Recorder) FieldFocused(form, field string) {
	r.add(Event{Kind: "fieldFocused", Form: form, Field: field})
}

func (r *Recorder) StepChanged(form, step string) {
	r.add(Event{Kind: "stepChanged", Form: form, Step: step})
}

func (r *Recorder) Submitted(form string, success bool) {
	r.add(Event{Kind: "submitted", Form: form, Success: success})
}

// Events returns a copy of the recorded notifications.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) add(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Log returns a sink that writes every notification to logger at level.
// Values are never logged.
func Log(logger *slog.Logger, level slog.Level) Sink {
	if logger == nil {
		return Nop{}
	}
	return &logSink{logger: logger, level: level}
}

type logSink struct {
	logger *slog.Logger
	level  slog.Level
}

func (s *logSink) FieldChanged(form, field string, _ any) {
	s.log("fieldChanged", form, slog.String("field", field))
}

func (s *logSink) FieldFocused(form, field string) {
	s.log("fieldFocused", form, slog.String("field", field))
}

func (s *logSink) StepChanged(form, step string) {
	s.log("stepChanged", form, slog.String("step", step))
}

func (s *logSink) Submitted(form string, success bool) {
	s.log("submitted", form, slog.Bool("success", success))
}

func (s *logSink) log(event, form string, attr slog.Attr) {
	s.logger.LogAttrs(context.Background(), s.level, "form activity",
		slog.String("event", event),
		slog.String("form", form),
		attr,
	)
}
