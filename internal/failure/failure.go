// Package failure classifies errors into the categories the UI reacts to.
package failure

import (
	"errors"

	"github.com/csheth/versescout/internal/api"
)

// Class is how a failure should be presented.
type Class int

const (
	// Transient failures are retryable: network, timeouts, server errors.
	Transient Class = iota
	// ExpectedEmpty means there is legitimately nothing to show.
	ExpectedEmpty
	// Auth means the session is missing or expired.
	Auth
	// Validation means the request was rejected before it was sent.
	Validation
	// ConfirmationRequired means the action needs an explicit second step.
	ConfirmationRequired
)

func (c Class) String() string {
	switch c {
	case ExpectedEmpty:
		return "expected-empty"
	case Auth:
		return "auth"
	case Validation:
		return "validation"
	case ConfirmationRequired:
		return "confirmation-required"
	default:
		return "transient"
	}
}

// Error is a client-side failure with a fixed class.
type Error struct {
	Class Class
	Msg   string
}

func (e *Error) Error() string { return e.Msg }

// New returns an error of the given class. Package-level sentinels are
// built with New and compared with errors.Is.
func New(class Class, msg string) *Error {
	return &Error{Class: class, Msg: msg}
}

// Classify maps err to a Class. Nil errors classify as Transient; callers
// should check for nil first.
func Classify(err error) Class {
	var local *Error
	if errors.As(err, &local) {
		return local.Class
	}
	switch api.KindOf(err) {
	case api.KindUnauthenticated:
		return Auth
	case api.KindNoActivePlan, api.KindPlanFinished:
		return ExpectedEmpty
	default:
		return Transient
	}
}

// Retryable reports whether retrying the same request may succeed.
func Retryable(err error) bool {
	return err != nil && Classify(err) == Transient
}
