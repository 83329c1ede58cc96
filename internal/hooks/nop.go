// Package hooks provides default Hooks implementations.
package hooks

import (
	"context"

	"github.com/arloliu/kcoop/types"
)

// NopHooks implements Hooks with no-op callbacks.
//
// This is the default implementation used when no custom hooks are provided,
// eliminating the need for nil checks throughout the codebase.
type NopHooks struct{}

// Compile-time assertions that NopHooks implements hook callbacks.
var (
	_ func(context.Context, []types.TopicPartition) error                   = (*NopHooks)(nil).OnPartitionsAssigned
	_ func(context.Context, types.ConsumerState, types.ConsumerState) error = (*NopHooks)(nil).OnStateChanged
	_ func(context.Context, error) error                                    = (*NopHooks)(nil).OnError
)

// NewNop creates a new no-op hooks implementation.
func NewNop() types.Hooks {
	h := &NopHooks{}

	return types.Hooks{
		OnPartitionsAssigned: h.OnPartitionsAssigned,
		OnPartitionsRevoked:  h.OnPartitionsRevoked,
		OnStateChanged:       h.OnStateChanged,
		OnError:              h.OnError,
	}
}

// Merge fills every nil callback of h with its no-op counterpart.
//
// Parameters:
//   - h: User hooks (may be nil)
//
// Returns:
//   - types.Hooks: Hooks whose callbacks are all non-nil
func Merge(h *types.Hooks) types.Hooks {
	out := NewNop()
	if h == nil {
		return out
	}
	if h.OnPartitionsAssigned != nil {
		out.OnPartitionsAssigned = h.OnPartitionsAssigned
	}
	if h.OnPartitionsRevoked != nil {
		out.OnPartitionsRevoked = h.OnPartitionsRevoked
	}
	if h.OnStateChanged != nil {
		out.OnStateChanged = h.OnStateChanged
	}
	if h.OnError != nil {
		out.OnError = h.OnError
	}

	return out
}

// OnPartitionsAssigned is a no-op implementation.
func (h *NopHooks) OnPartitionsAssigned(context.Context, []types.TopicPartition) error {
	return nil
}

// OnPartitionsRevoked is a no-op implementation.
func (h *NopHooks) OnPartitionsRevoked(context.Context, []types.TopicPartition) error {
	return nil
}

// OnStateChanged is a no-op implementation.
func (h *NopHooks) OnStateChanged(context.Context, types.ConsumerState, types.ConsumerState) error {
	return nil
}

// OnError is a no-op implementation.
func (h *NopHooks) OnError(context.Context, error) error {
	return nil
}
