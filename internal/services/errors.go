package services

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("resource not found")
	ErrEmailExists      = errors.New("email already exists")
	ErrRoleNameExists   = errors.New("role name already exists")
	ErrAlreadyAssigned  = errors.New("user already has this role")
	ErrKeycloakIDExists = errors.New("keycloak id is already linked to a user")
)

// ValidationError reports a caller-fixable problem with a single field.
// It is always surfaced verbatim, never redacted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsConflict reports whether err is one of the duplicate-key conflicts
// that map to HTTP 409.
func IsConflict(err error) bool {
	return errors.Is(err, ErrEmailExists) ||
		errors.Is(err, ErrRoleNameExists) ||
		errors.Is(err, ErrAlreadyAssigned) ||
		errors.Is(err, ErrKeycloakIDExists)
}
