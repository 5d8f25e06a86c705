package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsNotFoundError(t *testing.T) {
	require.True(t, IsNotFoundError(ErrPlayerNotFound))
	require.True(t, IsNotFoundError(fmt.Errorf("getting player: %w", ErrPlayerNotFound)))

	require.False(t, IsNotFoundError(ErrPlayerExists))
	require.False(t, IsNotFoundError(nil))
}
