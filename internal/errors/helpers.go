package errors

import (
	"errors"
	"fmt"
)

// Wrap wraps an error with context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Validation wraps a message as a validation error.
func Validation(message string) error {
	return fmt.Errorf("%s: %w", message, ErrValidation)
}

// Validationf formats a message as a validation error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// NotFound wraps a message as a not found error.
func NotFound(message string) error {
	return fmt.Errorf("%s: %w", message, ErrNotFound)
}

// StateConflict wraps a message as a state conflict error.
func StateConflict(message string) error {
	return fmt.Errorf("%s: %w", message, ErrStateConflict)
}

// Collaborator wraps an external failure as a collaborator error.
func Collaborator(err error, message string) error {
	if err == nil {
		return fmt.Errorf("%s: %w", message, ErrCollaborator)
	}
	return fmt.Errorf("%s: %v: %w", message, err, ErrCollaborator)
}

// Persistence wraps a store write failure.
func Persistence(err error, message string) error {
	if err == nil {
		return fmt.Errorf("%s: %w", message, ErrPersistence)
	}
	return fmt.Errorf("%s: %v: %w", message, err, ErrPersistence)
}

// Internal wraps a message as an internal error.
func Internal(message string) error {
	return fmt.Errorf("%s: %w", message, ErrInternal)
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, category)
}

// Category returns the taxonomy name for an error, for logging and HTTP mapping.
func Category(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "ValidationError"
	case errors.Is(err, ErrNotFound):
		return "NotFoundError"
	case errors.Is(err, ErrStateConflict):
		return "StateConflict"
	case errors.Is(err, ErrCollaborator):
		return "CollaboratorFailure"
	case errors.Is(err, ErrPersistence):
		return "PersistenceFailure"
	default:
		return "Internal"
	}
}
