package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/arloliu/kcoop/types"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Collectors are created and registered lazily on first use, so constructing a
// PrometheusCollector that is never exercised leaves the registry untouched.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	// Consumer metrics
	stateTransitions  *prometheus.CounterVec
	stateDuration     *prometheus.HistogramVec
	rebalances        prometheus.Counter
	rebalancePartsVec *prometheus.CounterVec
	rebalanceDuration prometheus.Histogram
	generation        prometheus.Gauge
	recordsConsumed   *prometheus.CounterVec
	commits           *prometheus.CounterVec
	commitPartitions  *prometheus.CounterVec
	fetchDuration     prometheus.Histogram
	fetchRecords      prometheus.Counter
	ownedPartitions   prometheus.Gauge

	// Producer metrics
	deliveries      *prometheus.CounterVec
	deliveryLatency *prometheus.HistogramVec
	batchSize       prometheus.Histogram
	inFlight        prometheus.Gauge
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "kcoop" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "kcoop"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.stateTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "state_transitions_total",
			Help:      "Total consumer state transitions by from/to state.",
		}, []string{"from", "to"})
		p.stateDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "state_duration_seconds",
			Help:      "Time spent in a state before leaving it.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10), // 1ms .. ~4m
		}, []string{"state"})

		p.rebalances = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "rebalances_total",
			Help:      "Total rebalances applied by this consumer.",
		})
		p.rebalancePartsVec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "rebalance_partitions_total",
			Help:      "Partitions moved by rebalances, by kind (revoked,added).",
		}, []string{"kind"})
		p.rebalanceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "rebalance_duration_seconds",
			Help:      "Time taken to apply a rebalance, including revoke commits.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		})
		p.generation = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "group_generation",
			Help:      "Group generation of the last applied rebalance.",
		})

		p.recordsConsumed = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "records_consumed_total",
			Help:      "Records dispatched to the handler, by topic and partition.",
		}, []string{"topic", "partition"})
		p.commits = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "commits_total",
			Help:      "Offset commits by reason and result (success,failure).",
		}, []string{"reason", "result"})
		p.commitPartitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "commit_partitions_total",
			Help:      "Partition offsets included in commits, by reason.",
		}, []string{"reason"})
		p.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "fetch_duration_seconds",
			Help:      "Latency of broker fetch calls.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms .. ~2s
		})
		p.fetchRecords = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "fetched_records_total",
			Help:      "Records returned by broker fetch calls.",
		})
		p.ownedPartitions = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "consumer",
			Name:      "owned_partitions",
			Help:      "Partitions currently owned by this consumer.",
		})

		p.deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "producer",
			Name:      "deliveries_total",
			Help:      "Record deliveries by topic and result (success,failure).",
		}, []string{"topic", "result"})
		p.deliveryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "producer",
			Name:      "delivery_latency_seconds",
			Help:      "Time between Send and the delivery callback.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"topic"})
		p.batchSize = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "producer",
			Name:      "batch_size_records",
			Help:      "Records per batch handed to the sender.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		})
		p.inFlight = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "producer",
			Name:      "in_flight_records",
			Help:      "Records submitted but not yet resolved.",
		})

		p.reg.MustRegister(
			p.stateTransitions, p.stateDuration,
			p.rebalances, p.rebalancePartsVec, p.rebalanceDuration, p.generation,
			p.recordsConsumed, p.commits, p.commitPartitions,
			p.fetchDuration, p.fetchRecords, p.ownedPartitions,
			p.deliveries, p.deliveryLatency, p.batchSize, p.inFlight,
		)
	})
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}

	return "failure"
}

// RecordStateTransition increments the transition counter and observes the time spent in from.
func (p *PrometheusCollector) RecordStateTransition(from, to types.ConsumerState, duration float64) {
	p.ensureRegistered()
	p.stateTransitions.WithLabelValues(from.String(), to.String()).Inc()
	p.stateDuration.WithLabelValues(from.String()).Observe(duration)
}

// RecordRebalance records an applied rebalance.
func (p *PrometheusCollector) RecordRebalance(generation int64, revoked, added int, duration float64) {
	p.ensureRegistered()
	p.rebalances.Inc()
	p.rebalancePartsVec.WithLabelValues("revoked").Add(float64(revoked))
	p.rebalancePartsVec.WithLabelValues("added").Add(float64(added))
	p.rebalanceDuration.Observe(duration)
	p.generation.Set(float64(generation))
}

// RecordRecordsConsumed adds dispatched records for a partition.
func (p *PrometheusCollector) RecordRecordsConsumed(tp types.TopicPartition, count int) {
	p.ensureRegistered()
	p.recordsConsumed.WithLabelValues(tp.Topic, itoa(tp.Partition)).Add(float64(count))
}

// RecordCommit records a commit attempt.
func (p *PrometheusCollector) RecordCommit(reason string, partitions int, success bool) {
	p.ensureRegistered()
	p.commits.WithLabelValues(reason, resultLabel(success)).Inc()
	p.commitPartitions.WithLabelValues(reason).Add(float64(partitions))
}

// RecordFetch records a completed fetch.
func (p *PrometheusCollector) RecordFetch(records int, duration float64) {
	p.ensureRegistered()
	p.fetchDuration.Observe(duration)
	p.fetchRecords.Add(float64(records))
}

// SetOwnedPartitions sets the owned partitions gauge.
func (p *PrometheusCollector) SetOwnedPartitions(count int) {
	p.ensureRegistered()
	p.ownedPartitions.Set(float64(count))
}

// RecordDelivery records a record delivery outcome.
func (p *PrometheusCollector) RecordDelivery(topic string, success bool, latency float64) {
	p.ensureRegistered()
	p.deliveries.WithLabelValues(topic, resultLabel(success)).Inc()
	p.deliveryLatency.WithLabelValues(topic).Observe(latency)
}

// RecordBatch observes a batch size.
func (p *PrometheusCollector) RecordBatch(size int) {
	p.ensureRegistered()
	p.batchSize.Observe(float64(size))
}

// SetInFlight sets the in-flight records gauge.
func (p *PrometheusCollector) SetInFlight(count int) {
	p.ensureRegistered()
	p.inFlight.Set(float64(count))
}

func itoa(n int32) string {
	return strconv.FormatInt(int64(n), 10)
}
