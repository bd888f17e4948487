package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelMatching(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"validation", Invalid("balanced", "JE/202401/0001", "debits (1) != credits (2)"), ErrValidation},
		{"validation set", ValidationErrors{{Rule: "lines", Description: "too few"}}, ErrValidation},
		{"not found", NotFound("account", "a-1"), ErrNotFound},
		{"unauthorized", AuthorizationError{Identity: "u1", Action: "journal.create", Resource: "c1"}, ErrUnauthorized},
	}
	for _, tt := range tests {
		wrapped := fmt.Errorf("posting: %w", tt.err)
		assert.ErrorIs(t, wrapped, tt.want, tt.name)
	}
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Rule: "balanced", Subject: "entry", Description: "unbalanced entry"},
		{Rule: "lines", Description: "at least two lines required"},
	}
	assert.Equal(t, "validation failed: balanced [entry]: unbalanced entry; lines: at least two lines required", errs.Error())
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(fmt.Errorf("account x: %w", ErrConflict)))
	assert.False(t, IsRetryable(errors.New("boom")))
	assert.False(t, IsRetryable(NotFound("entry", "e1")))
}
