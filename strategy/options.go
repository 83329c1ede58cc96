package strategy

import "github.com/arloliu/kcoop/internal/hash"

// ringConfig holds the hash ring settings shared by ring-based strategies.
type ringConfig struct {
	virtualNodes int
	hashSeed     uint64
}

func newRingConfig(opts []Option) ringConfig {
	cfg := ringConfig{virtualNodes: hash.DefaultVirtualNodes}
	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

func (c ringConfig) ring(members []string) *hash.Ring {
	return hash.NewRing(members, c.virtualNodes, c.hashSeed)
}

// Option configures a ring-based strategy.
type Option func(*ringConfig)

// WithVirtualNodes sets the number of virtual nodes per member.
//
// Higher values provide better distribution but increase memory usage.
// Recommended range: 100-300 (default: 150).
//
// Parameters:
//   - nodes: Number of virtual nodes per member
//
// Returns:
//   - Option: Configuration option
func WithVirtualNodes(nodes int) Option {
	return func(c *ringConfig) {
		c.virtualNodes = nodes
	}
}

// WithHashSeed sets a custom hash seed. Every member of a group must use the same seed.
func WithHashSeed(seed uint64) Option {
	return func(c *ringConfig) {
		c.hashSeed = seed
	}
}
