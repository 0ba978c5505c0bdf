package siumai

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLlmError_CategoryDefaulting(t *testing.T) {
	err := NewError(ErrorRateLimit, "too many requests")
	assert.Equal(t, CategoryRateLimit, err.Category)
}

func TestLlmError_UnwrapThroughFmtErrorf(t *testing.T) {
	base := NewError(ErrorConnection, "dial failed")
	wrapped := fmt.Errorf("execute request: %w", base)

	var llmErr *LlmError
	require.True(t, errors.As(wrapped, &llmErr))
	assert.Equal(t, ErrorConnection, llmErr.Kind)
}

func TestLlmError_WithCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewError(ErrorInternal, "wrapped").WithCause(cause)
	assert.Equal(t, cause, err.Unwrap())
}

func TestMissingAPIKey(t *testing.T) {
	err := MissingAPIKey("anthropic")
	assert.Equal(t, ErrorMissingAPIKey, err.Kind)
	assert.Equal(t, "anthropic", err.Details["provider"])
}
