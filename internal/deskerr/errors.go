// Package deskerr defines the error kinds surfaced to the actor that initiated
// an exchange-desk operation.
package deskerr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the caller should recover from it.
type Kind string

const (
	// KindValidation means the input was malformed; the actor stays on the same step.
	KindValidation Kind = "validation"
	// KindPermission means the actor is not allowed to perform the operation.
	KindPermission Kind = "permission"
	// KindState means the target is absent, expired or in the wrong state; the actor restarts.
	KindState Kind = "state"
	// KindInfrastructure means a collaborator (provisioning, storage) failed.
	KindInfrastructure Kind = "infrastructure"
)

// Sentinels usable with errors.Is to test the kind of any *Error.
var (
	ErrValidation     = &Error{Kind: KindValidation}
	ErrPermission     = &Error{Kind: KindPermission}
	ErrState          = &Error{Kind: KindState}
	ErrInfrastructure = &Error{Kind: KindInfrastructure}
)

// Error is a kinded error with a message fit for the initiating actor.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrState) works
// regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Validation returns a validation error.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

// Permission returns a permission error.
func Permission(format string, args ...any) error {
	return &Error{Kind: KindPermission, Msg: fmt.Sprintf(format, args...)}
}

// State returns a state error.
func State(format string, args ...any) error {
	return &Error{Kind: KindState, Msg: fmt.Sprintf(format, args...)}
}

// Infrastructure wraps a collaborator failure.
func Infrastructure(err error, format string, args ...any) error {
	return &Error{Kind: KindInfrastructure, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or "" when err carries no kind.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// Message returns the actor-facing message of err.
func Message(err error) string {
	var de *Error
	if errors.As(err, &de) && de.Msg != "" {
		return de.Msg
	}
	return err.Error()
}
