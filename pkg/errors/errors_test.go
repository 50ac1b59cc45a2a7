package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapAndCode(t *testing.T) {
	base := fmt.Errorf("dial tcp: refused")
	err := Wrap("backend_unavailable", "ask failed", base)

	require.EqualError(t, err, "ask failed: dial tcp: refused")
	require.True(t, IsCode(err, "backend_unavailable"))
	require.ErrorIs(t, err, base)

	wrapped := fmt.Errorf("submit: %w", err)
	require.Equal(t, "backend_unavailable", CodeOf(wrapped))
	require.Equal(t, "", CodeOf(base))
}

func TestWrapWithoutCause(t *testing.T) {
	err := Wrap("invalid_input", "question cannot be empty", nil)
	require.EqualError(t, err, "question cannot be empty")
}
