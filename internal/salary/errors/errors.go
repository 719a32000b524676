// Package errors holds the error taxonomy shared by the moderation core,
// the persistence layer, the transport and the REST client.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrUnauthorized = fmt.Errorf("unauthorized")
	// ErrConflict means the record changed under us: the transition's source
	// state no longer matches what is stored.
	ErrConflict = fmt.Errorf("conflict")
	// ErrInvalidTransition is matched by every *InvalidTransitionError.
	ErrInvalidTransition = fmt.Errorf("invalid transition")
)

// ValidationError reports a missing or malformed field. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidTransitionError is returned when a moderation action is attempted
// from a state that does not allow it.
type InvalidTransitionError struct {
	From   string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a salary in state %q", e.Action, e.From)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// RemoteFailure wraps an unsuccessful call to the admin REST API, either a
// transport error or a response with success=false.
type RemoteFailure struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *RemoteFailure) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: remote call failed: %v", e.Op, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("%s: remote returned %d: %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: remote reported failure: %s", e.Op, e.Message)
	}
}

func (e *RemoteFailure) Unwrap() error { return e.Err }

// IsRemoteFailure reports whether err carries a *RemoteFailure.
func IsRemoteFailure(err error) bool {
	var rf *RemoteFailure
	return errors.As(err, &rf)
}
