package model

// FormError is either a FieldError or a GlobalError. The interface is sealed;
// callers switch on the concrete type.
type FormError interface {
	// Message returns the human readable text attached to the error.
	Message() string
	formError()
}

// FieldError attaches a message to a single field.
type FieldError struct {
	FieldID string `json:"field" yaml:"field"`
	Text    string `json:"message" yaml:"message"`
}

// GlobalError is a form level message not bound to any field.
type GlobalError struct {
	Text string `json:"message" yaml:"message"`
}

// NewFieldError constructs a FieldError.
func NewFieldError(fieldID, message string) FieldError {
	return FieldError{FieldID: fieldID, Text: message}
}

// NewGlobalError constructs a GlobalError.
func NewGlobalError(message string) GlobalError {
	return GlobalError{Text: message}
}

func (e FieldError) Message() string  { return e.Text }
func (e GlobalError) Message() string { return e.Text }

func (FieldError) formError()  {}
func (GlobalError) formError() {}

// ErrorField returns the field identifier of err, or "" for global errors.
func ErrorField(err FormError) string {
	if fieldErr, ok := err.(FieldError); ok {
		return fieldErr.FieldID
	}
	return ""
}
