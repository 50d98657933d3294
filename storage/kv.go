// Package storage defines the KV contract that the bridge's State global is
// served from, plus concrete backends in its subpackages (ttlcache,
// versioned, sql, redisstore, mongostore). state/ builds on
// storage/versioned, not on KV.
package storage

import "context"

// KV is the minimal persistence contract: get/put/delete/list by prefix.
// SQL, Redis, and in-memory backends all satisfy it identically so the
// caller (the bridge's State global) doesn't care which is wired in.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	ListPrefix(ctx context.Context, prefix string) (map[string][]byte, error)
}
