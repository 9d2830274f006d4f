package domain

import (
	"errors"
	"fmt"
)

// RetryMessage is the only text callers see for persistence failures.
const RetryMessage = "Something went wrong, please retry"

// ValidationError reports malformed or missing input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Invalid builds a ValidationError for field.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// AuthorizationError reports an actor acting outside its capability.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string { return e.Message }

// RedirectError tells the caller to continue at Location instead of the
// requested step.
type RedirectError struct {
	Location string
}

func (e *RedirectError) Error() string { return "continue registration at " + e.Location }

// NotFoundError reports a missing (or already resolved) resource.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " not found"
}

// ConflictError reports a conditional update that matched no row because a
// concurrent writer advanced the state first.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// PersistenceError wraps a failed atomic write. Error never exposes the cause.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return RetryMessage }

func (e *PersistenceError) Unwrap() error { return e.Err }

// Cause renders the wrapped error for logs.
func (e *PersistenceError) Cause() string {
	if e.Err == nil {
		return e.Op
	}
	return e.Op + ": " + e.Err.Error()
}

// IsClassified reports whether err already belongs to the taxonomy above, so
// it can be returned to the caller as is.
func IsClassified(err error) bool {
	var (
		validation *ValidationError
		authz      *AuthorizationError
		redirect   *RedirectError
		notFound   *NotFoundError
		conflict   *ConflictError
		persist    *PersistenceError
	)
	return errors.As(err, &validation) ||
		errors.As(err, &authz) ||
		errors.As(err, &redirect) ||
		errors.As(err, &notFound) ||
		errors.As(err, &conflict) ||
		errors.As(err, &persist)
}
