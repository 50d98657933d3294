// Package redisstore implements storage.KV over Redis, grounded on the
// teacher's internal/cache.Manager (connection options, health-check loop)
// but binary-safe: cache.Manager's Get/Set are string-typed for the
// LLM-prompt-cache use case; this backend stores raw []byte so it can hold
// serialized agent state and schema records interchangeably with the SQL
// backend.
package redisstore

import (
	"context"
	"fmt"

	"github.com/lucidkernel/runtime/storage"
	"github.com/redis/go-redis/v9"
)

// Backend is a Redis-backed storage.KV. ListPrefix uses SCAN with a
// "prefix*" match pattern rather than KEYS, to avoid blocking the server on
// large keyspaces.
type Backend struct {
	client *redis.Client
}

var _ storage.KV = (*Backend)(nil)

// Options mirrors the connection knobs the teacher's cache.Config exposed.
type Options struct {
	Addr         string
	Password     string
	DB           int
	MaxRetries   int
	PoolSize     int
	MinIdleConns int
}

// Open connects to Redis and verifies reachability with a Ping.
func Open(ctx context.Context, opts Options) (*Backend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		MaxRetries:   opts.MaxRetries,
		PoolSize:     opts.PoolSize,
		MinIdleConns: opts.MinIdleConns,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("storage/redisstore: ping: %w", err)
	}
	return &Backend{client: client}, nil
}

// NewWithClient wraps an already-configured client.
func NewWithClient(client *redis.Client) *Backend { return &Backend{client: client} }

func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("storage/redisstore: get %q: %w", key, err)
	}
	return val, true, nil
}

func (b *Backend) Put(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("storage/redisstore: put %q: %w", key, err)
	}
	return nil
}

func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("storage/redisstore: delete %q: %w", key, err)
	}
	return nil
}

func (b *Backend) ListPrefix(ctx context.Context, prefix string) (map[string][]byte, error) {
	out := make(map[string][]byte)
	iter := b.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := b.client.Get(ctx, key).Bytes()
		if err != nil {
			continue
		}
		out[key] = val
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("storage/redisstore: scan prefix %q: %w", prefix, err)
	}
	return out, nil
}

// Close releases the underlying connection pool.
func (b *Backend) Close() error { return b.client.Close() }
