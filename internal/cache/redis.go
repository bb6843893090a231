package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/woozymasta/ecoleta/internal/metrics"
)

// Redis is a cache backed by a Redis server, shared between server replicas and the loader.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis wraps an existing client. Keys are namespaced with prefix.
func NewRedis(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

// OpenRedis connects to addr and verifies the connection.
func OpenRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedis(client, "ecoleta:"), nil
}

// Get implements Cache.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.CacheLookupsTotal.WithLabelValues("miss").Inc()
		return nil, false, nil
	}
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("error").Inc()
		return nil, false, err
	}

	metrics.CacheLookupsTotal.WithLabelValues("hit").Inc()
	return val, true, nil
}

// Set implements Cache.
func (r *Redis) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, val, ttl).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}

// Open returns a Redis cache when addr is set and an in-process LRU of size entries otherwise.
// The returned close function is never nil.
func Open(ctx context.Context, addr, password string, db, size int) (Cache, func(), error) {
	if addr == "" {
		return NewMemory(size), func() {}, nil
	}

	r, err := OpenRedis(ctx, addr, password, db)
	if err != nil {
		return nil, nil, err
	}

	return r, func() { _ = r.Close() }, nil
}
