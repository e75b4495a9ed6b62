// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"context"
	"errors"
)

// Common sentinels across gateway/controller/view layers.
var (
	// ErrUnauthorized indicates a missing or rejected bearer token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates the server refused a state change (e.g., item already sold).
	ErrConflict = errors.New("conflict")

	// ErrTransient indicates a network or server failure; the user may retry.
	ErrTransient = errors.New("temporarily unavailable")

	// ErrBusy indicates a mutation of the same kind is already in flight for the entity.
	ErrBusy = errors.New("already in progress")

	// ErrValidation indicates locally rejected input; nothing was sent.
	ErrValidation = errors.New("validation")
)

// Classify maps any error onto one of the sentinels above.
// Errors that carry no sentinel are treated as transient.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrUnauthorized):
		return ErrUnauthorized
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrConflict):
		return ErrConflict
	case errors.Is(err, ErrBusy):
		return ErrBusy
	case errors.Is(err, ErrValidation):
		return ErrValidation
	default:
		return ErrTransient
	}
}

// Message converts an error to the string shown in a view's inline error region.
func Message(err error) string {
	if err == nil {
		return ""
	}
	switch Classify(err) {
	case ErrUnauthorized:
		return "login required: please log in and try again"
	case ErrNotFound:
		return "not found"
	case ErrConflict:
		return "this item can no longer be changed: " + err.Error()
	case ErrBusy:
		return "please wait, the previous request is still in progress"
	case ErrValidation:
		return err.Error()
	}
	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}
	return "something went wrong, please try again"
}
