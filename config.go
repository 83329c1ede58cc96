package kcoop

import (
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/arloliu/kcoop/strategy"
)

// Codec names how record keys and values are rendered for the application.
type Codec string

const (
	// CodecString treats payloads as UTF-8 text.
	CodecString Codec = "string"

	// CodecBytes treats payloads as opaque bytes, rendered as hex.
	CodecBytes Codec = "bytes"
)

// Valid reports whether c is a recognized codec.
func (c Codec) Valid() bool {
	return c == CodecString || c == CodecBytes
}

// Format renders b according to the codec.
func (c Codec) Format(b []byte) string {
	if c == CodecBytes {
		return hex.EncodeToString(b)
	}

	return string(b)
}

// ConsumerConfig is the configuration of a Consumer.
type ConsumerConfig struct {
	// BootstrapServers lists broker addresses used by network backends.
	BootstrapServers []string `yaml:"bootstrapServers"`

	// GroupID identifies the consumer group. Required.
	GroupID string `yaml:"groupId"`

	// Topics lists the subscribed topics. Required.
	Topics []string `yaml:"topics"`

	// ClientID is a free-form client name added to log lines.
	ClientID string `yaml:"clientId"`

	KeyCodec   Codec `yaml:"keyCodec"`
	ValueCodec Codec `yaml:"valueCodec"`

	// AutoOffsetReset picks the start position of partitions without a committed offset.
	//
	// Default: earliest
	AutoOffsetReset OffsetReset `yaml:"autoOffsetReset"`

	// AssignmentStrategy is the rebalance protocol identifier, one of strategy.IDs().
	//
	// Default: cooperative-sticky
	AssignmentStrategy string `yaml:"assignmentStrategy"`

	// PollTimeout bounds how long a single fetch waits for records.
	//
	// Default: 1 second
	PollTimeout time.Duration `yaml:"pollTimeout"`

	// MaxPollRecords caps the records returned by a single fetch.
	//
	// Default: 500
	MaxPollRecords int `yaml:"maxPollRecords"`

	// DisableAutoCommit turns off periodic commits. Revocation and shutdown still commit.
	DisableAutoCommit bool `yaml:"disableAutoCommit"`

	// AutoCommitInterval is the period of automatic commits.
	//
	// Default: 5 seconds
	AutoCommitInterval time.Duration `yaml:"autoCommitInterval"`

	// CommitTimeout bounds commits made on revocation and shutdown, which run on
	// their own context once the loop has been cancelled.
	//
	// Default: 5 seconds
	CommitTimeout time.Duration `yaml:"commitTimeout"`

	// MaxFetchRetries is the number of consecutive failed fetches tolerated
	// before the error becomes fatal.
	//
	// Default: 5
	MaxFetchRetries int `yaml:"maxFetchRetries"`

	// RetryBackoff is the base delay between failed fetches. Jitter is added and
	// the delay doubles per attempt.
	//
	// Default: 100 milliseconds
	RetryBackoff time.Duration `yaml:"retryBackoff"`
}

// ProducerConfig is the configuration of a Producer.
type ProducerConfig struct {
	BootstrapServers []string `yaml:"bootstrapServers"`
	ClientID         string   `yaml:"clientId"`
	KeyCodec         Codec    `yaml:"keyCodec"`
	ValueCodec       Codec    `yaml:"valueCodec"`

	// Linger is how long a partition lane waits for more records before sending a batch.
	//
	// Default: 5 milliseconds
	Linger time.Duration `yaml:"linger"`

	// BatchSize caps the records handed to the sender at once.
	//
	// Default: 100
	BatchSize int `yaml:"batchSize"`

	// RequestTimeout bounds a single batch send, including partition count lookups.
	//
	// Default: 30 seconds
	RequestTimeout time.Duration `yaml:"requestTimeout"`
}

// DefaultConsumerConfig returns a ConsumerConfig with production defaults.
//
// GroupID and Topics have no default and must be set by the caller.
//
// Returns:
//   - ConsumerConfig: Configuration with defaults applied
//
// Example:
//
//	cfg := kcoop.DefaultConsumerConfig()
//	cfg.GroupID = "my-third-application"
//	cfg.Topics = []string{"demo_java"}
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		BootstrapServers:   []string{"127.0.0.1:9092"},
		KeyCodec:           CodecString,
		ValueCodec:         CodecString,
		AutoOffsetReset:    OffsetResetEarliest,
		AssignmentStrategy: strategy.CooperativeStickyID,
		PollTimeout:        time.Second,
		MaxPollRecords:     500,
		AutoCommitInterval: 5 * time.Second,
		CommitTimeout:      5 * time.Second,
		MaxFetchRetries:    5,
		RetryBackoff:       100 * time.Millisecond,
	}
}

// DefaultProducerConfig returns a ProducerConfig with production defaults.
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		BootstrapServers: []string{"127.0.0.1:9092"},
		KeyCodec:         CodecString,
		ValueCodec:       CodecString,
		Linger:           5 * time.Millisecond,
		BatchSize:        100,
		RequestTimeout:   30 * time.Second,
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Zero values are replaced; explicit values, including DisableAutoCommit, are kept.
func (cfg *ConsumerConfig) SetDefaults() {
	defaults := DefaultConsumerConfig()

	if len(cfg.BootstrapServers) == 0 {
		cfg.BootstrapServers = defaults.BootstrapServers
	}
	if cfg.KeyCodec == "" {
		cfg.KeyCodec = defaults.KeyCodec
	}
	if cfg.ValueCodec == "" {
		cfg.ValueCodec = defaults.ValueCodec
	}
	if cfg.AutoOffsetReset == "" {
		cfg.AutoOffsetReset = defaults.AutoOffsetReset
	}
	if cfg.AssignmentStrategy == "" {
		cfg.AssignmentStrategy = defaults.AssignmentStrategy
	}
	if cfg.PollTimeout == 0 {
		cfg.PollTimeout = defaults.PollTimeout
	}
	if cfg.MaxPollRecords == 0 {
		cfg.MaxPollRecords = defaults.MaxPollRecords
	}
	if cfg.AutoCommitInterval == 0 {
		cfg.AutoCommitInterval = defaults.AutoCommitInterval
	}
	if cfg.CommitTimeout == 0 {
		cfg.CommitTimeout = defaults.CommitTimeout
	}
	if cfg.MaxFetchRetries == 0 {
		cfg.MaxFetchRetries = defaults.MaxFetchRetries
	}
	if cfg.RetryBackoff == 0 {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
}

// SetDefaults fills in missing configuration values with production defaults.
func (cfg *ProducerConfig) SetDefaults() {
	defaults := DefaultProducerConfig()

	if len(cfg.BootstrapServers) == 0 {
		cfg.BootstrapServers = defaults.BootstrapServers
	}
	if cfg.KeyCodec == "" {
		cfg.KeyCodec = defaults.KeyCodec
	}
	if cfg.ValueCodec == "" {
		cfg.ValueCodec = defaults.ValueCodec
	}
	if cfg.Linger == 0 {
		cfg.Linger = defaults.Linger
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
}

// Validate checks the consumer configuration.
//
// Returns:
//   - error: First violated rule, or nil if the configuration is valid
func (cfg *ConsumerConfig) Validate() error {
	// Rule 1: a group needs a name
	if cfg.GroupID == "" {
		return errors.New("groupId is required")
	}

	// Rule 2: at least one named topic
	if len(cfg.Topics) == 0 {
		return errors.New("at least one topic is required")
	}
	if slices.Contains(cfg.Topics, "") {
		return errors.New("topic names must not be empty")
	}

	// Rule 3: somewhere to connect
	if len(cfg.BootstrapServers) == 0 {
		return errors.New("bootstrapServers is required")
	}

	// Rule 4: codecs
	if !cfg.KeyCodec.Valid() {
		return fmt.Errorf("keyCodec %q is not supported (use %q or %q)", cfg.KeyCodec, CodecString, CodecBytes)
	}
	if !cfg.ValueCodec.Valid() {
		return fmt.Errorf("valueCodec %q is not supported (use %q or %q)", cfg.ValueCodec, CodecString, CodecBytes)
	}

	// Rule 5: offset reset policy
	if !cfg.AutoOffsetReset.Valid() {
		return fmt.Errorf("autoOffsetReset %q is not supported (use %q or %q)",
			cfg.AutoOffsetReset, OffsetResetEarliest, OffsetResetLatest)
	}

	// Rule 6: known assignment strategy
	if !slices.Contains(strategy.IDs(), cfg.AssignmentStrategy) {
		return fmt.Errorf("assignmentStrategy %q is not supported (use one of %v)", cfg.AssignmentStrategy, strategy.IDs())
	}

	// Rule 7: poll bounds
	if cfg.PollTimeout <= 0 {
		return fmt.Errorf("pollTimeout must be positive, got %v", cfg.PollTimeout)
	}
	if cfg.MaxPollRecords <= 0 {
		return fmt.Errorf("maxPollRecords must be positive, got %d", cfg.MaxPollRecords)
	}

	// Rule 8: commit timings
	if !cfg.DisableAutoCommit && cfg.AutoCommitInterval <= 0 {
		return fmt.Errorf("autoCommitInterval must be positive when auto commit is enabled, got %v", cfg.AutoCommitInterval)
	}
	if cfg.CommitTimeout <= 0 {
		return fmt.Errorf("commitTimeout must be positive, got %v", cfg.CommitTimeout)
	}

	// Rule 9: fetch retry policy
	if cfg.MaxFetchRetries < 0 {
		return fmt.Errorf("maxFetchRetries must not be negative, got %d", cfg.MaxFetchRetries)
	}
	if cfg.RetryBackoff < 0 {
		return fmt.Errorf("retryBackoff must not be negative, got %v", cfg.RetryBackoff)
	}

	return nil
}

// ValidateWithWarnings logs configuration choices that are legal but unusual.
//
// Parameters:
//   - logger: Logger used for warnings
func (cfg *ConsumerConfig) ValidateWithWarnings(logger Logger) {
	if !cfg.DisableAutoCommit && cfg.AutoCommitInterval < cfg.PollTimeout {
		logger.Warn("autoCommitInterval is shorter than pollTimeout; commits run at most once per poll",
			"auto_commit_interval", cfg.AutoCommitInterval,
			"poll_timeout", cfg.PollTimeout,
		)
	}
	if cfg.CommitTimeout > time.Minute {
		logger.Warn("commitTimeout is very long; shutdown may stall on an unreachable broker",
			"commit_timeout", cfg.CommitTimeout,
		)
	}
	if cfg.AssignmentStrategy != strategy.CooperativeStickyID {
		logger.Warn("eager assignment strategy selected; every rebalance revokes all partitions",
			"assignment_strategy", cfg.AssignmentStrategy,
		)
	}
}

// Validate checks the producer configuration.
//
// Returns:
//   - error: First violated rule, or nil if the configuration is valid
func (cfg *ProducerConfig) Validate() error {
	// Rule 1: somewhere to connect
	if len(cfg.BootstrapServers) == 0 {
		return errors.New("bootstrapServers is required")
	}

	// Rule 2: codecs
	if !cfg.KeyCodec.Valid() {
		return fmt.Errorf("keyCodec %q is not supported (use %q or %q)", cfg.KeyCodec, CodecString, CodecBytes)
	}
	if !cfg.ValueCodec.Valid() {
		return fmt.Errorf("valueCodec %q is not supported (use %q or %q)", cfg.ValueCodec, CodecString, CodecBytes)
	}

	// Rule 3: batching
	if cfg.Linger < 0 {
		return fmt.Errorf("linger must not be negative, got %v", cfg.Linger)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("batchSize must be positive, got %d", cfg.BatchSize)
	}

	// Rule 4: request bound
	if cfg.RequestTimeout <= 0 {
		return fmt.Errorf("requestTimeout must be positive, got %v", cfg.RequestTimeout)
	}

	return nil
}

// ValidateWithWarnings logs configuration choices that are legal but unusual.
func (cfg *ProducerConfig) ValidateWithWarnings(logger Logger) {
	if cfg.Linger > time.Second {
		logger.Warn("linger above one second delays every delivery callback", "linger", cfg.Linger)
	}
	if cfg.RequestTimeout < cfg.Linger {
		logger.Warn("requestTimeout is shorter than linger", "request_timeout", cfg.RequestTimeout, "linger", cfg.Linger)
	}
}

// TestConsumerConfig returns a ConsumerConfig tuned for fast tests.
//
// Poll and commit timings are shortened so that cancellation and auto commit
// are observable within a few hundred milliseconds.
//
// Parameters:
//   - groupID: Consumer group
//   - topics: Subscribed topics
func TestConsumerConfig(groupID string, topics ...string) ConsumerConfig {
	cfg := DefaultConsumerConfig()
	cfg.GroupID = groupID
	cfg.Topics = topics
	cfg.PollTimeout = 200 * time.Millisecond
	cfg.AutoCommitInterval = 100 * time.Millisecond
	cfg.CommitTimeout = time.Second
	cfg.RetryBackoff = 10 * time.Millisecond

	return cfg
}

// TestProducerConfig returns a ProducerConfig tuned for fast tests.
func TestProducerConfig() ProducerConfig {
	cfg := DefaultProducerConfig()
	cfg.Linger = time.Millisecond
	cfg.RequestTimeout = 5 * time.Second

	return cfg
}
