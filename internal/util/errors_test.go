package util

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/vault-cli/pwvault/internal/domain"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, ExitOK},
		{errors.New("boom"), ExitError},
		{domain.NewValidationError("label", "cannot be empty"), ExitInvalidInput},
		{fmt.Errorf("user %q: %w", "bob", domain.ErrNotFound), ExitNotFound},
		{domain.ErrAlreadyExists, ExitNotFound},
		{fmt.Errorf("open: %w", domain.ErrAuthOrIntegrity), ExitIntegrityErr},
		{domain.ErrUnsupportedFormat, ExitIntegrityErr},
		{domain.ErrPersistence, ExitError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err), "%v", tt.err)
	}
}

func TestPrintErrorCollapsesUnlockFailures(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var a, b bytes.Buffer
	PrintError(&a, fmt.Errorf("%w: tag mismatch", domain.ErrAuthOrIntegrity))
	PrintError(&b, fmt.Errorf("%w: version 9", domain.ErrUnsupportedFormat))

	assert.Equal(t, a.String(), b.String())
	assert.NotContains(t, a.String(), "tag mismatch")
	assert.Contains(t, a.String(), "Error:")
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "ctx"))
	err := WrapError(domain.ErrNotFound, "lookup")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "lookup: not found", err.Error())
}
