package drive

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity does not exist in the event.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the caller may not touch the entity.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials covers unknown users and wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUnavailable marks a datastore failure the client may retry.
	ErrUnavailable = errors.New("datastore unavailable")
)

// ValidationError lists the offending fields of a request.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Message: msg, Fields: map[string]string{field: msg}}
}

// ConflictError is returned when a street is already held by another donor.
type ConflictError struct {
	Street string
	HeldBy DonorRef
}

func (e *ConflictError) Error() string {
	if e.HeldBy.Kind == KindStudent {
		return fmt.Sprintf("street %q is already reserved by student: %s", e.Street, e.HeldBy.Name)
	}
	return fmt.Sprintf("street %q is already reserved by: %s", e.Street, e.HeldBy.Name)
}

// unavailable tags datastore errors on aggregate reads as retryable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
