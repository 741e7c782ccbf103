package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Callers wrap these with context and
// test for them with errors.Is.
var (
	// ErrValidation is returned for empty or malformed input.
	ErrValidation = errors.New("invalid input")
	// ErrNotFound is returned when a user or an entry does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when registering a user that already has a vault.
	ErrAlreadyExists = errors.New("already exists")
	// ErrAuthOrIntegrity covers a wrong password, a corrupted file and a
	// tampered file alike. The cases are never told apart.
	ErrAuthOrIntegrity = errors.New("authentication or integrity check failed")
	// ErrUnsupportedFormat is returned for a vault file written in an unknown format version.
	ErrUnsupportedFormat = errors.New("unsupported vault format")
	// ErrPersistence is returned when the vault file could not be written.
	// The previously committed file is left intact.
	ErrPersistence = errors.New("failed to persist vault")
	// ErrResource is returned when key derivation cannot complete.
	ErrResource = errors.New("key derivation failed")
	// ErrSessionClosed is returned when a closed session is used.
	ErrSessionClosed = errors.New("session is closed")
)

// ValidationError describes which field was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// NewValidationError is a shorthand for &ValidationError{...}.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// RequireNonEmpty returns a validation error when value is empty.
func RequireNonEmpty(field, value string) error {
	if value == "" {
		return NewValidationError(field, "cannot be empty")
	}
	return nil
}

// unlockFailedMessage is the only text shown to a user when a vault cannot
// be opened with the supplied credentials.
const unlockFailedMessage = "unable to unlock vault: wrong password or damaged vault file"

// PublicMessage renders err for display to the user. Authentication,
// integrity and format failures collapse into one message.
func PublicMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrAuthOrIntegrity) || errors.Is(err, ErrUnsupportedFormat) {
		return unlockFailedMessage
	}
	return err.Error()
}
