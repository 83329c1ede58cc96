package kcoop

import (
	"github.com/arloliu/kcoop/internal/logging"
	"github.com/arloliu/kcoop/internal/metrics"
	"github.com/arloliu/kcoop/partitioner"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a Consumer or Producer with optional dependencies.
//
// Options that do not apply to the component being built are ignored.
type Option func(*clientOptions)

// clientOptions holds optional Consumer and Producer configuration.
type clientOptions struct {
	hooks       *Hooks
	metrics     MetricsCollector
	logger      Logger
	rebalancer  Rebalancer
	source      PartitionSource
	memberID    string
	partitioner partitioner.Partitioner
}

// WithHooks sets lifecycle event hooks.
//
// Parameters:
//   - hooks: Hooks structure with callback functions
//
// Returns:
//   - Option: Functional option for NewConsumer
//
// Example:
//
//	hooks := &kcoop.Hooks{
//	    OnPartitionsRevoked: func(ctx context.Context, revoked []kcoop.TopicPartition) error {
//	        return flushState(ctx, revoked)
//	    },
//	}
//	c, err := kcoop.NewConsumer(&cfg, broker, handler, kcoop.WithHooks(hooks))
func WithHooks(hooks *Hooks) Option {
	return func(o *clientOptions) {
		o.hooks = hooks
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewConsumer and NewProducer
//
// Example:
//
//	collector := kcoop.NewPrometheusMetrics(prometheus.DefaultRegisterer, "demo")
//	c, err := kcoop.NewConsumer(&cfg, broker, handler, kcoop.WithMetrics(collector))
func WithMetrics(metrics MetricsCollector) Option {
	return func(o *clientOptions) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with zap.SugaredLogger)
//
// Returns:
//   - Option: Functional option for NewConsumer and NewProducer
func WithLogger(logger Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithRebalancer overrides the rebalancer selected by ConsumerConfig.AssignmentStrategy.
//
// The identifier in the configuration is still reported to the group coordinator.
func WithRebalancer(r Rebalancer) Option {
	return func(o *clientOptions) {
		o.rebalancer = r
	}
}

// WithPartitionSource overrides where the consumer discovers partitions.
//
// By default the consumer broker's own ListPartitions is used.
func WithPartitionSource(src PartitionSource) Option {
	return func(o *clientOptions) {
		o.source = src
	}
}

// WithMemberID fixes the consumer's group member ID instead of generating one.
func WithMemberID(id string) Option {
	return func(o *clientOptions) {
		o.memberID = id
	}
}

// WithPartitioner overrides how the producer picks partitions for records
// without an explicit partition.
func WithPartitioner(p partitioner.Partitioner) Option {
	return func(o *clientOptions) {
		o.partitioner = p
	}
}

// NewSlogLogger returns a Logger backed by slog's default logger.
func NewSlogLogger() Logger {
	return logging.NewSlogDefault()
}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger {
	return logging.NewNop()
}

// NewNopMetrics returns a MetricsCollector that records nothing.
func NewNopMetrics() MetricsCollector {
	return metrics.NewNop()
}

// NewPrometheusMetrics returns a MetricsCollector registering its collectors on reg.
//
// Collectors are registered on first use. An empty namespace defaults to "kcoop".
func NewPrometheusMetrics(reg prometheus.Registerer, namespace string) MetricsCollector {
	return metrics.NewPrometheus(reg, namespace)
}
