package engine

import (
	"errors"
	"fmt"
)

// ErrUnhandled is returned (possibly wrapped) by App.Fold when it does not
// recognise an (event, entity) combination. The scheduler logs it and
// carries on with the tick.
var ErrUnhandled = errors.New("unhandled event for entity")

// RuntimeError represents an error detected while running the scheduler.
//
// Runtime errors include:
//   - Transition panic: a Fold or Simulate call panicked, the tick aborted
//   - Collaborator failure: an input, broadcast or presentation collaborator
//     returned an error
//   - Halted: a tick was requested after Shutdown or a fatal error
//   - Invalid config: the scheduler could not be constructed
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Tick is the tick number being processed when the error occurred.
	Tick uint64

	// Details contains additional context.
	Details map[string]string

	// Err is the underlying error, if any.
	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeTransitionPanic indicates a transition panicked mid-tick.
	ErrCodeTransitionPanic RuntimeErrorCode = "TRANSITION_PANIC"

	// ErrCodeCollaboratorFailed indicates an external collaborator failed.
	ErrCodeCollaboratorFailed RuntimeErrorCode = "COLLABORATOR_FAILED"

	// ErrCodeHalted indicates the scheduler has stopped accepting ticks.
	ErrCodeHalted RuntimeErrorCode = "HALTED"

	// ErrCodeInvalidConfig indicates the scheduler configuration is invalid.
	ErrCodeInvalidConfig RuntimeErrorCode = "INVALID_CONFIG"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	msg := fmt.Sprintf("%s: %s (tick=%d)", e.Code, e.Message, e.Tick)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// hasCode walks nested RuntimeErrors, so a HALTED error still reports
// the failure that caused it.
func hasCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if !errors.As(err, &re) {
		return false
	}
	if re.Code == code {
		return true
	}
	return hasCode(re.Err, code)
}

// IsTransitionPanic reports whether err is a transition panic.
// Uses errors.As to handle wrapped errors.
func IsTransitionPanic(err error) bool {
	return hasCode(err, ErrCodeTransitionPanic)
}

// IsCollaboratorError reports whether err is a collaborator failure.
func IsCollaboratorError(err error) bool {
	return hasCode(err, ErrCodeCollaboratorFailed)
}

// IsHalted reports whether err reports a halted scheduler.
func IsHalted(err error) bool {
	return hasCode(err, ErrCodeHalted)
}

// NewPanicError creates a RuntimeError for a recovered transition panic.
func NewPanicError(tick uint64, recovered any, stack []byte) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeTransitionPanic,
		Message: fmt.Sprintf("transition panicked: %v", recovered),
		Tick:    tick,
		Details: map[string]string{
			"stack": string(stack),
		},
	}
}

// NewCollaboratorError wraps a collaborator failure.
func NewCollaboratorError(collaborator string, tick uint64, err error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCollaboratorFailed,
		Message: collaborator + " failed",
		Tick:    tick,
		Details: map[string]string{
			"collaborator": collaborator,
		},
		Err: err,
	}
}

// NewHaltedError reports a tick request against a halted scheduler.
func NewHaltedError(tick uint64, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeHalted,
		Message: "scheduler halted",
		Tick:    tick,
		Err:     cause,
	}
}
