package hooks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func TestNewNop(t *testing.T) {
	h := NewNop()
	ctx := context.Background()

	require.NoError(t, h.OnPartitionsAssigned(ctx, nil))
	require.NoError(t, h.OnPartitionsRevoked(ctx, nil))
	require.NoError(t, h.OnStateChanged(ctx, types.StateInit, types.StateSubscribed))
	require.NoError(t, h.OnError(ctx, errors.New("x")))
}

func TestMerge(t *testing.T) {
	t.Run("nil hooks become no-ops", func(t *testing.T) {
		h := Merge(nil)
		require.NotNil(t, h.OnPartitionsAssigned)
		require.NotNil(t, h.OnPartitionsRevoked)
		require.NotNil(t, h.OnStateChanged)
		require.NotNil(t, h.OnError)
	})

	t.Run("user callbacks are kept", func(t *testing.T) {
		sentinel := errors.New("revoked")
		h := Merge(&types.Hooks{
			OnPartitionsRevoked: func(context.Context, []types.TopicPartition) error { return sentinel },
		})

		require.ErrorIs(t, h.OnPartitionsRevoked(context.Background(), nil), sentinel)
		require.NoError(t, h.OnPartitionsAssigned(context.Background(), nil))
	})
}
