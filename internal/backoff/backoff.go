// Package backoff computes jittered retry delays for fetch retries and broker polling.
package backoff

import (
	rand "math/rand/v2"
	"time"
)

// DefaultMultiplier is the growth factor used when none is configured.
const DefaultMultiplier = 2.0

// Jitter returns the delay following prev using decorrelated jitter with a cap.
//
// The next delay is drawn uniformly from [base, prev*mult) and clamped to capDur:
//   - prev <= 0 starts from base
//   - mult < 1 means no growth
//   - capDur <= 0 means no cap; a cap below base always yields the cap
//
// A nil rng uses the package-level generator.
func Jitter(prev, base time.Duration, mult float64, capDur time.Duration, rng *rand.Rand) time.Duration {
	if base <= 0 {
		base = 50 * time.Millisecond
	}
	if mult < 1.0 {
		mult = 1.0
	}
	if capDur > 0 && capDur < base {
		return capDur
	}
	if prev <= 0 {
		return base
	}

	span := time.Duration(float64(prev)*mult) - base
	if span <= 0 {
		span = base
	}

	var jitter int64
	if rng != nil {
		jitter = rng.Int64N(int64(span))
	} else {
		jitter = rand.Int64N(int64(span)) //nolint:gosec // non-crypto backoff jitter
	}

	next := base + time.Duration(jitter)
	if capDur > 0 && next > capDur {
		return capDur
	}

	return next
}

// NewRNG returns a deterministic generator for a non-zero seed, or nil for seed 0.
//
//nolint:gosec
func NewRNG(seed int64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	s1 := uint64(seed)
	s2 := s1 ^ 0x9e3779b97f4a7c15

	return rand.New(rand.NewPCG(s1, s2))
}

// Backoff tracks consecutive failures of one retry loop. It is not safe for concurrent use.
type Backoff struct {
	base    time.Duration
	mult    float64
	capDur  time.Duration
	rng     *rand.Rand
	prev    time.Duration
	attempt int
}

// New creates a Backoff growing from base by DefaultMultiplier up to capDur.
func New(base, capDur time.Duration) *Backoff {
	return &Backoff{base: base, mult: DefaultMultiplier, capDur: capDur}
}

// WithSeed makes the jitter sequence reproducible.
func (b *Backoff) WithSeed(seed int64) *Backoff {
	b.rng = NewRNG(seed)
	return b
}

// Next records a failure and returns the delay before the next attempt.
func (b *Backoff) Next() time.Duration {
	b.attempt++
	b.prev = Jitter(b.prev, b.base, b.mult, b.capDur, b.rng)

	return b.prev
}

// Attempt returns the number of failures since the last Reset.
func (b *Backoff) Attempt() int {
	return b.attempt
}

// Reset clears the failure streak after a success.
func (b *Backoff) Reset() {
	b.prev = 0
	b.attempt = 0
}
