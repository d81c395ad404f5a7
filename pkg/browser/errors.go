package browser

import (
	"errors"
	"fmt"
)

// Code classifies a session or driver failure for clients.
type Code string

const (
	// CodeSessionNotFound means the id is unknown or already disposed.
	CodeSessionNotFound Code = "session_not_found"

	// CodeSessionClosed means the session reached its terminal state.
	CodeSessionClosed Code = "session_closed"

	// CodeSessionBusy means the session lock could not be acquired
	// within the bounded wait. Safe to retry with backoff.
	CodeSessionBusy Code = "session_busy"

	// CodeLaunchFailure means the environment could not start a browser.
	CodeLaunchFailure Code = "launch_failure"

	// CodeNavigation means the driver failed to load the requested URL.
	CodeNavigation Code = "navigation"

	// CodeElementNotFound means the selector resolved to zero elements.
	CodeElementNotFound Code = "element_not_found"

	// CodeActionTimeout means the driver's wait for an element or
	// action exceeded its bounded timeout.
	CodeActionTimeout Code = "action_timeout"

	// CodeCapture means a screenshot or page-metadata read failed at
	// the driver level.
	CodeCapture Code = "capture"
)

// Error attaches a taxonomy code to an underlying failure. Fatal marks
// failures after which the browser itself is unusable; the dispatcher
// poisons the owning session when it sees one.
type Error struct {
	Code  Code
	Fatal bool
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with a taxonomy code.
func NewError(code Code, err error) *Error {
	return &Error{Code: code, Err: err}
}

// NewFatalError wraps err with a taxonomy code and marks the browser
// unusable.
func NewFatalError(code Code, err error) *Error {
	return &Error{Code: code, Fatal: true, Err: err}
}

// Errorf builds a coded error from a format string.
func Errorf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Err: fmt.Errorf(format, args...)}
}

// CodeOf returns the taxonomy code attached to err, or "" when err
// carries none.
func CodeOf(err error) Code {
	var berr *Error
	if errors.As(err, &berr) {
		return berr.Code
	}
	return ""
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsFatal reports whether err indicates the browser behind a session
// is gone.
func IsFatal(err error) bool {
	var berr *Error
	return errors.As(err, &berr) && berr.Fatal
}
