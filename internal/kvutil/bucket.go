// Package kvutil provides helpers for creating NATS JetStream KV buckets and
// streams that several processes may race to create.
package kvutil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/arloliu/kcoop/internal/backoff"
)

// DefaultMaxRetries is used when a non-positive retry count is given.
const DefaultMaxRetries = 3

const (
	retryBase = 10 * time.Millisecond
	retryCap  = 500 * time.Millisecond
)

// EnsureKVBucketWithRetry creates or opens a KV bucket with retry logic.
//
// Several consumers may create the same bucket at once. Losing the race is not
// an error: the existing bucket is opened instead. Other failures are retried
// with jittered backoff.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: KV bucket configuration
//   - maxRetries: Maximum number of attempts (default: 3)
//
// Returns:
//   - jetstream.KeyValue: The KV bucket instance
//   - error: Any error that occurred after all retries
//
// Example:
//
//	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
//	    Bucket: "kcoop-members",
//	    TTL:    6 * time.Second,
//	}, 3)
func EnsureKVBucketWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.KeyValueConfig,
	maxRetries int,
) (jetstream.KeyValue, error) {
	return ensure(ctx, "KV bucket "+config.Bucket, maxRetries, func() (jetstream.KeyValue, error) {
		kv, err := js.CreateKeyValue(ctx, config)
		if errors.Is(err, jetstream.ErrBucketExists) {
			kv, err = js.KeyValue(ctx, config.Bucket)
			if err != nil {
				return nil, fmt.Errorf("bucket exists but failed to open: %w", err)
			}
		}

		return kv, err
	})
}

// EnsureStreamWithRetry creates or opens a stream with retry logic.
//
// An existing stream is opened as is; its configuration is not updated.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - js: JetStream context
//   - config: Stream configuration
//   - maxRetries: Maximum number of attempts (default: 3)
//
// Returns:
//   - jetstream.Stream: The stream handle
//   - error: Any error that occurred after all retries
func EnsureStreamWithRetry(
	ctx context.Context,
	js jetstream.JetStream,
	config jetstream.StreamConfig,
	maxRetries int,
) (jetstream.Stream, error) {
	return ensure(ctx, "stream "+config.Name, maxRetries, func() (jetstream.Stream, error) {
		stream, err := js.CreateStream(ctx, config)
		if errors.Is(err, jetstream.ErrStreamNameAlreadyInUse) {
			stream, err = js.Stream(ctx, config.Name)
			if err != nil {
				return nil, fmt.Errorf("stream exists but failed to open: %w", err)
			}
		}

		return stream, err
	})
}

func ensure[T any](ctx context.Context, what string, maxRetries int, attempt func() (T, error)) (T, error) {
	var zero T
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	bo := backoff.New(retryBase, retryCap)
	var lastErr error

	for i := range maxRetries {
		res, err := attempt()
		if err == nil {
			return res, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, fmt.Errorf("context cancelled while creating %s: %w", what, ctx.Err())
		}

		if i < maxRetries-1 {
			timer := time.NewTimer(bo.Next())
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
		}
	}

	return zero, fmt.Errorf("failed to create/open %s after %d attempts: %w", what, maxRetries, lastErr)
}
