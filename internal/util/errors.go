// Package util provides utility functions and helpers used throughout the password vault.
// It includes common operations, error handling utilities, and other shared functionality.
package util

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"

	"github.com/vault-cli/pwvault/internal/domain"
)

// Exit codes
const (
	ExitOK           = 0
	ExitError        = 1
	ExitInvalidInput = 2
	ExitNotFound     = 3
	ExitIntegrityErr = 4
)

// ExitCode maps an error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, domain.ErrValidation):
		return ExitInvalidInput
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrAlreadyExists):
		return ExitNotFound
	case errors.Is(err, domain.ErrAuthOrIntegrity), errors.Is(err, domain.ErrUnsupportedFormat):
		return ExitIntegrityErr
	default:
		return ExitError
	}
}

// PrintError writes err to w in red. Unlock failures use the single public message.
func PrintError(w io.Writer, err error) {
	if err == nil {
		return
	}
	red := color.New(color.FgRed, color.Bold).SprintFunc()
	fmt.Fprintf(w, "%s %s\n", red("Error:"), domain.PublicMessage(err))
}

// HandleError prints err and exits with the matching code.
func HandleError(err error) {
	if err == nil {
		return
	}
	PrintError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

// WrapError wraps an error with additional context
func WrapError(err error, context string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", context, err)
}
