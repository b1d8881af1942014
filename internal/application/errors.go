package application

import (
	"errors"
	"fmt"

	"github.com/example/session-scheduler/internal/persistence"
	"github.com/example/session-scheduler/internal/scheduler"
)

var (
	// ErrUnauthorized is returned when the caller did not present a valid API key.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrConflict is matched by every *ConflictError.
	ErrConflict = errors.New("application: booking conflict")
	// ErrInvalidTransition is matched by validation errors raised for illegal status changes.
	ErrInvalidTransition = errors.New("application: invalid status transition")
)

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
	cause       error
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// Unwrap exposes the underlying cause, if any.
func (v *ValidationError) Unwrap() error {
	if v == nil {
		return nil
	}
	return v.cause
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func fieldError(field, message string) *ValidationError {
	v := &ValidationError{}
	v.add(field, message)
	return v
}

// transitionError converts a lifecycle violation into a ValidationError that
// matches ErrInvalidTransition.
func transitionError(err error) error {
	var tErr *scheduler.TransitionError
	if !errors.As(err, &tErr) {
		return err
	}
	v := fieldError("status", fmt.Sprintf("cannot change status from %s to %s", tErr.From, tErr.To))
	v.cause = fmt.Errorf("%w: %w", ErrInvalidTransition, tErr)
	return v
}

// ConflictError reports the existing session that blocks a booking.
type ConflictError struct {
	MemberID string
	Session  scheduler.ScheduledSession
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("application: member %s is already booked by session %s on %s at %s",
		e.MemberID, e.Session.ID, e.Session.Date, e.Session.Time)
}

// Is makes errors.Is(err, ErrConflict) hold for every ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return ErrNotFound
	default:
		return err
	}
}
