package kcoop

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Environment variables that override file configuration.
const (
	EnvBootstrapServers = "KCOOP_BOOTSTRAP_SERVERS"
	EnvGroupID          = "KCOOP_GROUP_ID"
	EnvTopics           = "KCOOP_TOPICS"
	EnvClientID         = "KCOOP_CLIENT_ID"
)

// FileConfig is the document read by LoadConfig.
//
//	consumer:
//	  bootstrapServers: ["127.0.0.1:9092"]
//	  groupId: my-third-application
//	  topics: [demo_java]
//	  autoOffsetReset: earliest
//	  assignmentStrategy: cooperative-sticky
//	  pollTimeout: 1s
//	producer:
//	  linger: 5ms
type FileConfig struct {
	Consumer ConsumerConfig `yaml:"consumer"`
	Producer ProducerConfig `yaml:"producer"`
}

// LoadConfig reads a yaml configuration file and applies environment overrides.
//
// Fields missing from the file keep their defaults. An empty path skips the
// file and returns defaults with environment overrides.
//
// Parameters:
//   - path: Path to a yaml file, or "" for none
//
// Returns:
//   - *FileConfig: Loaded configuration with defaults and overrides applied
//   - error: Read or parse error
func LoadConfig(path string) (*FileConfig, error) {
	cfg := &FileConfig{
		Consumer: DefaultConsumerConfig(),
		Producer: DefaultProducerConfig(),
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	cfg.Consumer.SetDefaults()
	cfg.Producer.SetDefaults()

	return cfg, nil
}

// ApplyEnv overrides connection settings from environment variables.
//
// Comma separated lists are accepted for servers and topics.
//
// Parameters:
//   - lookup: Variable lookup function, usually os.LookupEnv
func (f *FileConfig) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBootstrapServers); ok && v != "" {
		servers := splitList(v)
		f.Consumer.BootstrapServers = servers
		f.Producer.BootstrapServers = servers
	}
	if v, ok := lookup(EnvGroupID); ok && v != "" {
		f.Consumer.GroupID = v
	}
	if v, ok := lookup(EnvTopics); ok && v != "" {
		f.Consumer.Topics = splitList(v)
	}
	if v, ok := lookup(EnvClientID); ok && v != "" {
		f.Consumer.ClientID = v
		f.Producer.ClientID = v
	}
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}
