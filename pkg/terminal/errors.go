package terminal

import "errors"

var (
	// ErrAborted signals the user aborted input (e.g., Ctrl+C) or declined to
	// retry a rejected submission.
	ErrAborted = errors.New("terminal: aborted")
	// ErrNoDriver is returned when a session is configured without a prompt
	// driver.
	ErrNoDriver = errors.New("terminal: prompt driver is nil")
)
