package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/kcoop/types"
)

func TestNewPrometheus_Defaults(t *testing.T) {
	p := NewPrometheus(nil, "")

	require.Equal(t, prometheus.DefaultRegisterer, p.reg)
	require.Equal(t, "kcoop", p.namespace)
}

func TestPrometheusCollector_LazyRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Empty(t, families)

	p.SetOwnedPartitions(2)

	require.InDelta(t, 2.0, testutil.ToFloat64(p.ownedPartitions), 0.0001)
}

func TestPrometheusCollector_ConsumerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")
	tp := types.TopicPartition{Topic: "demo_java", Partition: 1}

	p.RecordStateTransition(types.StatePolling, types.StateRebalancing, 0.5)
	p.RecordRebalance(7, 1, 2, 0.02)
	p.RecordRecordsConsumed(tp, 5)
	p.RecordRecordsConsumed(tp, 3)
	p.RecordCommit("revoke", 1, true)
	p.RecordCommit("revoke", 1, false)
	p.RecordFetch(8, 0.01)

	require.InDelta(t, 1.0, testutil.ToFloat64(p.stateTransitions.WithLabelValues("Polling", "Rebalancing")), 0.0001)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.rebalances), 0.0001)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.rebalancePartsVec.WithLabelValues("revoked")), 0.0001)
	require.InDelta(t, 2.0, testutil.ToFloat64(p.rebalancePartsVec.WithLabelValues("added")), 0.0001)
	require.InDelta(t, 7.0, testutil.ToFloat64(p.generation), 0.0001)
	require.InDelta(t, 8.0, testutil.ToFloat64(p.recordsConsumed.WithLabelValues("demo_java", "1")), 0.0001)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.commits.WithLabelValues("revoke", "failure")), 0.0001)
	require.InDelta(t, 2.0, testutil.ToFloat64(p.commitPartitions.WithLabelValues("revoke")), 0.0001)
	require.InDelta(t, 8.0, testutil.ToFloat64(p.fetchRecords), 0.0001)
}

func TestPrometheusCollector_ProducerMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordDelivery("demo_java", true, 0.001)
	p.RecordDelivery("demo_java", false, 0.001)
	p.RecordBatch(10)
	p.SetInFlight(3)

	require.InDelta(t, 1.0, testutil.ToFloat64(p.deliveries.WithLabelValues("demo_java", "success")), 0.0001)
	require.InDelta(t, 1.0, testutil.ToFloat64(p.deliveries.WithLabelValues("demo_java", "failure")), 0.0001)
	require.InDelta(t, 3.0, testutil.ToFloat64(p.inFlight), 0.0001)
	require.Equal(t, 1, testutil.CollectAndCount(p.batchSize))
}
