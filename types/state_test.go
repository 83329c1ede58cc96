package types

import "testing"

func TestConsumerStateString(t *testing.T) {
	tests := []struct {
		state ConsumerState
		want  string
	}{
		{StateInit, "Init"},
		{StateSubscribed, "Subscribed"},
		{StatePolling, "Polling"},
		{StateRebalancing, "Rebalancing"},
		{StateDraining, "Draining"},
		{StateClosed, "Closed"},
		{ConsumerState(999), "Unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.state.String(); got != tt.want {
				t.Errorf("ConsumerState.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOffsetResetValid(t *testing.T) {
	if !OffsetResetEarliest.Valid() || !OffsetResetLatest.Valid() {
		t.Fatal("earliest and latest must be valid")
	}
	if OffsetReset("none").Valid() {
		t.Fatal("none must be rejected")
	}
}
