package metrics

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func TestNewNop(t *testing.T) {
	metrics := NewNop()

	require.NotNil(t, metrics)
	require.IsType(t, &NopMetrics{}, metrics)
}

func TestNopMetrics_DiscardsEverything(t *testing.T) {
	metrics := NewNop()
	tp := types.TopicPartition{Topic: "demo_java", Partition: 0}

	require.NotPanics(t, func() {
		metrics.RecordStateTransition(types.StateInit, types.StatePolling, 1.5)
		metrics.RecordStateTransition(types.ConsumerState(999), types.ConsumerState(1000), -1.0)
		metrics.RecordRebalance(3, 1, 2, 0.01)
		metrics.RecordRecordsConsumed(tp, 10)
		metrics.RecordCommit("auto", 2, false)
		metrics.RecordFetch(0, 1.0)
		metrics.SetOwnedPartitions(4)
		metrics.RecordDelivery("demo_java", true, 0.002)
		metrics.RecordBatch(16)
		metrics.SetInFlight(0)
	})
}
