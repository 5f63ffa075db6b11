package course

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned when a response arrives after its view was torn down.
	ErrClosed = errors.New("view closed")
	// ErrStale is returned when a newer request superseded the one that produced a response.
	ErrStale = errors.New("stale response")
)

// ValidationError is raised before any network call: blank titles,
// incomplete submissions, malformed answer sets.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

func Invalid(field, reason string) error { return &ValidationError{Field: field, Reason: reason} }

// NotFoundError marks an identifier that is not (or no longer) present.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}

func NotFound(resource, id string) error { return &NotFoundError{Resource: resource, ID: id} }

// TransportError wraps network failures and 5xx answers from the API.
type TransportError struct {
	Op     string
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsNotFound(err error) bool {
	var n *NotFoundError
	return errors.As(err, &n)
}

func IsTransport(err error) bool {
	var t *TransportError
	return errors.As(err, &t)
}
