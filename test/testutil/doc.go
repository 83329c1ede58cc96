// Package testutil provides shared helpers for the integration and stress tests.
//
// It contains assertions over whole consumer groups, such as checking that no
// partition is owned by two members, and a Group helper that starts, stops and
// inspects several consumers at once.
//
// Note: For embedded NATS and in-memory clusters, use the
// github.com/arloliu/kcoop/kcooptest package.
package testutil
