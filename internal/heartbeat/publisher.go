package heartbeat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/kcoop/internal/logging"
	"github.com/arloliu/kcoop/types"
)

// Common errors for heartbeat operations.
var (
	ErrNotStarted     = errors.New("publisher not started")
	ErrAlreadyStarted = errors.New("publisher already started")
	ErrNoKey          = errors.New("heartbeat key not set")
)

// ValueFunc returns the payload written on every heartbeat.
type ValueFunc func() ([]byte, error)

// Publisher keeps a member entry alive in a NATS KV bucket with a TTL.
//
// Each beat rewrites the entry, resetting its TTL. When the process dies the
// entry expires and the rest of the group sees the member disappear.
type Publisher struct {
	kv       jetstream.KeyValue
	key      string
	interval time.Duration
	value    ValueFunc
	logger   types.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a new heartbeat publisher.
//
// The KV bucket should be configured with a TTL of ~3x the heartbeat interval
// so that a member survives two missed beats.
//
// Parameters:
//   - kv: JetStream KV bucket holding member entries
//   - key: Entry key (e.g., "my-group.consumer-5f1c")
//   - interval: Heartbeat interval (typically 2s)
//   - value: Payload of each beat
//   - logger: Logger for failed beats (nil discards)
//
// Returns:
//   - *Publisher: New heartbeat publisher instance
//
// Example:
//
//	publisher := heartbeat.New(kv, "my-group.consumer-1", 2*time.Second, member.encode, logger)
//	if err := publisher.Start(ctx); err != nil {
//	    return err
//	}
//	defer publisher.Stop()
func New(kv jetstream.KeyValue, key string, interval time.Duration, value ValueFunc, logger types.Logger) *Publisher {
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Publisher{
		kv:       kv,
		key:      key,
		interval: interval,
		value:    value,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start publishes the first beat synchronously, then keeps beating in the background.
//
// Returns:
//   - error: ErrAlreadyStarted if already running, ErrNoKey without a key,
//     or the error of the first beat
func (p *Publisher) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrAlreadyStarted
	}
	if p.key == "" {
		return ErrNoKey
	}

	if err := p.Beat(ctx); err != nil {
		return fmt.Errorf("failed to publish initial heartbeat: %w", err)
	}

	p.started = true
	go p.publishLoop()

	return nil
}

// Stop stops the publisher and deletes the entry from KV.
//
// The entry is deleted so that the group notices the departure immediately
// instead of waiting for the TTL.
//
// Returns:
//   - error: ErrNotStarted if not running, or cleanup error if delete fails
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return ErrNotStarted
	}
	close(p.stopCh)
	p.started = false
	p.mu.Unlock()

	<-p.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.kv.Delete(ctx, p.key); err != nil {
		return fmt.Errorf("stopped but failed to delete heartbeat: %w", err)
	}

	return nil
}

// Beat writes the current value immediately.
//
// Callers use it to publish a changed value without waiting for the next tick.
func (p *Publisher) Beat(ctx context.Context) error {
	value, err := p.value()
	if err != nil {
		return fmt.Errorf("failed to encode heartbeat for %s: %w", p.key, err)
	}

	if _, err := p.kv.Put(ctx, p.key, value); err != nil {
		return fmt.Errorf("failed to publish heartbeat for %s: %w", p.key, err)
	}

	return nil
}

func (p *Publisher) publishLoop() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := p.Beat(ctx)
			cancel()

			if err != nil {
				p.logger.Warn("heartbeat failed", "key", p.key, "error", err)
			}
		}
	}
}

// Key returns the KV key the publisher writes.
func (p *Publisher) Key() string {
	return p.key
}

// IsStarted returns whether the publisher is currently running.
func (p *Publisher) IsStarted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.started
}
