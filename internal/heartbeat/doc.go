// Package heartbeat keeps group member entries alive in a NATS KV bucket.
//
// Each consumer group member owns one key in a bucket configured with a TTL.
// The Publisher rewrites the key every interval, resetting the TTL; the value
// carries the member's current state (its owned partitions). A member that
// stops beating disappears when the TTL expires, and Stop deletes the key so
// that a graceful departure is visible immediately.
//
// # Publisher Lifecycle
//
//  1. Create publisher with New(kv, key, interval, value, logger)
//  2. Start publishing with Start(ctx); the first beat is synchronous
//  3. Call Beat(ctx) to publish a changed value right away
//  4. Stop publishing with Stop(), which deletes the key
//
// # Key Format
//
//	{groupID}.{memberID}
//
// Example: "my-third-application.consumer-8f14e45f"
//
// # Crash Detection
//
// With a 2s interval and a 6s bucket TTL, a crashed member is dropped after
// three missed beats.
package heartbeat
