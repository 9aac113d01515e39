// Package autherrors defines the failure taxonomy shared by every component
// of the session service. Callers match on the sentinel values with errors.Is
// (or errors.As for ValidationError); components never downgrade a specific
// failure to a generic one.
package autherrors

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound indicates a referenced entity (user, client, token) is absent.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCredentials indicates a secret or password mismatch.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrExpired indicates a token past its expiry timestamp.
	ErrExpired = errors.New("token expired")

	// ErrRevoked indicates a refresh token that has been explicitly revoked.
	ErrRevoked = errors.New("token revoked")

	// ErrConflict indicates a uniqueness violation on create.
	ErrConflict = errors.New("conflict")

	// ErrStoreUnavailable indicates a store adapter timeout or transport failure.
	// It must never be conflated with ErrNotFound.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrNoCurrentPrincipal indicates a token save was attempted before both a
	// client and a user were resolved in the same session context.
	ErrNoCurrentPrincipal = errors.New("no current principal")
)

// ValidationError carries the complete, ordered list of new-user policy
// violations so a caller can fix all problems in one round trip.
type ValidationError struct {
	Code       int      `json:"code"`
	Violations []string `json:"errors"`
}

// NewValidationError builds a ValidationError with the fixed client-facing
// status code.
func NewValidationError(violations []string) *ValidationError {
	return &ValidationError{Code: 400, Violations: violations}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Violations, " "))
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
