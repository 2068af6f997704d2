package playback

import (
	"errors"
	"fmt"
)

// Sentinel errors for playback operations.
var (
	// ErrNoSession is returned by pause and resume with nothing playing.
	ErrNoSession = errors.New("playback: no active session")
	// ErrInvalidTransition is returned when an operation is not legal in
	// the current state.
	ErrInvalidTransition = errors.New("playback: invalid state transition")
	// ErrExtractionFailed wraps extractor failures ending a session.
	ErrExtractionFailed = errors.New("playback: text extraction failed")
	// ErrGenerationFailed wraps synthesis failures ending a session.
	ErrGenerationFailed = errors.New("playback: audio generation failed")
)

// Error carries where a playback failure happened and whether the session
// survived it.
type Error struct {
	Err         error
	Component   string
	Action      string
	Recoverable bool
}

// Error implements error.
func (e *Error) Error() string {
	return fmt.Sprintf("playback: %s: %s: %v", e.Component, e.Action, e.Err)
}

// Unwrap supports errors.Is and errors.As through the wrapper.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err with its origin.
func NewError(err error, component, action string, recoverable bool) *Error {
	return &Error{Err: err, Component: component, Action: action, Recoverable: recoverable}
}
