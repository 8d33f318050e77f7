package goSignup

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidInput is an exported constant or variable used by the signup engine.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthorized is an exported constant or variable used by the signup engine.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotFound is an exported constant or variable used by the signup engine.
	ErrNotFound = errors.New("not found")
	// ErrServerError is an exported constant or variable used by the signup engine.
	ErrServerError = errors.New("server error")
	// ErrTimeout is an exported constant or variable used by the signup engine.
	ErrTimeout = errors.New("request timed out")
	// ErrNetworkUnreachable is an exported constant or variable used by the signup engine.
	ErrNetworkUnreachable = errors.New("network unreachable")
	// ErrUnknownFailure is an exported constant or variable used by the signup engine.
	ErrUnknownFailure = errors.New("unknown failure")
	// ErrStepOrder is an exported constant or variable used by the signup engine.
	ErrStepOrder = errors.New("step submitted out of order")
	// ErrStepBusy is an exported constant or variable used by the signup engine.
	ErrStepBusy = errors.New("another submission is in progress")
	// ErrStartOver is an exported constant or variable used by the signup engine.
	ErrStartOver = errors.New("flow state incomplete, start over")
	// ErrSessionExpired is an exported constant or variable used by the signup engine.
	ErrSessionExpired = errors.New("flow session expired")
	// ErrRedirectRejected is an exported constant or variable used by the signup engine.
	ErrRedirectRejected = errors.New("redirect target rejected")
	// ErrEngineNotReady is an exported constant or variable used by the signup engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// FieldError defines a public type used by goSignup APIs.
// It reports a single schema violation: the offending field and a
// displayable message.
type FieldError struct {
	Field   string
	Message string
}

// ValidationError defines a public type used by goSignup APIs.
// It aggregates every schema violation found in one submission. It matches
// ErrInvalidInput under errors.Is so callers can branch on the taxonomy
// without inspecting fields.
type ValidationError struct {
	Fields []FieldError
}

// Error describes the error operation and its observable behavior.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidInput.Error()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Is describes the is operation and its observable behavior.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// FieldMessage describes the fieldmessage operation and its observable behavior.
// It returns the message for the named field, or "" when the field passed.
func (e *ValidationError) FieldMessage(field string) string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Message
		}
	}
	return ""
}

// BackendError defines a public type used by goSignup APIs.
// It wraps a taxonomy sentinel with the displayable message extracted from the
// backend response. It is the error type every client operation returns on
// failure.
type BackendError struct {
	Kind    error
	Message string
	Status  int
}

// Error describes the error operation and its observable behavior.
func (e *BackendError) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Message)
}

// Unwrap describes the unwrap operation and its observable behavior.
func (e *BackendError) Unwrap() error { return e.Kind }

// FailureMessage describes the failuremessage operation and its observable behavior.
// It extracts the displayable message carried by err. A ValidationError yields
// its first field message, a BackendError its backend message, and anything
// else its Error() text. Nil yields "".
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	var ve *ValidationError
	if errors.As(err, &ve) && len(ve.Fields) > 0 {
		return ve.Fields[0].Message
	}
	var be *BackendError
	if errors.As(err, &be) && be.Message != "" {
		return be.Message
	}
	return err.Error()
}
