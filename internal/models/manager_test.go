package models

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStaticManager(t *testing.T) {
	m := NewStaticManager([]string{"gemini-2.0-flash", "gemini-1.5-pro"})

	items, err := m.List(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"gemini-2.0-flash", "gemini-1.5-pro"}, items)

	require.NoError(t, m.Healthy(context.Background(), "gemini-2.0-flash"))
	require.ErrorIs(t, m.Healthy(context.Background(), "nope"), ErrUnknownModel)
}
