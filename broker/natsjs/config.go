package natsjs

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/kcoop/types"
)

// Config configures the JetStream broker.
type Config struct {
	// Prefix namespaces every stream, subject and bucket the broker creates.
	Prefix string `yaml:"prefix"`

	// MemoryStorage keeps streams and buckets in memory instead of on disk.
	MemoryStorage bool `yaml:"memoryStorage"`

	// Replicas is the replication factor of streams and buckets.
	Replicas int `yaml:"replicas"`

	// MemberTTL is how long a member survives without heartbeats.
	MemberTTL time.Duration `yaml:"memberTtl"`

	// HeartbeatInterval is how often members refresh their entry.
	HeartbeatInterval time.Duration `yaml:"heartbeatInterval"`

	// FetchPollMin and FetchPollMax bound the jittered wait between empty polls.
	FetchPollMin time.Duration `yaml:"fetchPollMin"`
	FetchPollMax time.Duration `yaml:"fetchPollMax"`

	// SetupRetries bounds attempts at creating buckets and streams.
	SetupRetries int `yaml:"setupRetries"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Prefix:            "kcoop",
		Replicas:          1,
		MemberTTL:         6 * time.Second,
		HeartbeatInterval: 2 * time.Second,
		FetchPollMin:      5 * time.Millisecond,
		FetchPollMax:      100 * time.Millisecond,
		SetupRetries:      3,
	}
}

// SetDefaults fills in zero values from DefaultConfig.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Prefix == "" {
		c.Prefix = d.Prefix
	}
	if c.Replicas == 0 {
		c.Replicas = d.Replicas
	}
	if c.MemberTTL == 0 {
		c.MemberTTL = d.MemberTTL
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = d.HeartbeatInterval
	}
	if c.FetchPollMin == 0 {
		c.FetchPollMin = d.FetchPollMin
	}
	if c.FetchPollMax == 0 {
		c.FetchPollMax = d.FetchPollMax
	}
	if c.SetupRetries == 0 {
		c.SetupRetries = d.SetupRetries
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if !validName(c.Prefix) {
		return fmt.Errorf("prefix %q must match %s", c.Prefix, namePattern)
	}
	if c.Replicas < 1 {
		return fmt.Errorf("replicas must be at least 1, got %d", c.Replicas)
	}
	if c.HeartbeatInterval <= 0 || c.MemberTTL <= c.HeartbeatInterval {
		return fmt.Errorf("memberTtl (%v) must exceed heartbeatInterval (%v)", c.MemberTTL, c.HeartbeatInterval)
	}
	if c.FetchPollMin <= 0 || c.FetchPollMax < c.FetchPollMin {
		return errors.New("fetchPollMin must be positive and not above fetchPollMax")
	}

	return nil
}

func (c *Config) storage() jetstream.StorageType {
	if c.MemoryStorage {
		return jetstream.MemoryStorage
	}

	return jetstream.FileStorage
}

const namePattern = `^[-_a-zA-Z0-9]+$`

// Group, member and topic names become KV key tokens and stream names.
var nameRE = regexp.MustCompile(namePattern)

func validName(s string) bool {
	return nameRE.MatchString(s)
}

func checkName(kind, s string) error {
	if !validName(s) {
		return fmt.Errorf("%s %q must match %s: %w", kind, s, namePattern, types.ErrInvalidConfig)
	}

	return nil
}
