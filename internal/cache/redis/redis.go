// Package redis backs the byte cache with a shared redis instance, so
// several service replicas warm each other's tenant lookups. Backend
// errors degrade to cache misses and are logged, never surfaced.
package redis

import (
	"context"
	"errors"
	"time"

	rdb "github.com/redis/go-redis/v9"

	"github.com/dropDatabas3/janus/internal/observability/logger"
)

type Cache struct{ c *rdb.Client }

// New connects lazily; the first operation dials.
func New(addr string, db int) *Cache {
	return &Cache{c: rdb.NewClient(&rdb.Options{Addr: addr, DB: db})}
}

func (r *Cache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.c.Get(ctx, key).Bytes()
	if errors.Is(err, rdb.Nil) {
		return nil, false
	}
	if err != nil {
		r.warn(ctx, "get", key, err)
		return nil, false
	}
	return b, true
}

func (r *Cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.c.Set(ctx, key, value, ttl).Err(); err != nil {
		r.warn(ctx, "set", key, err)
	}
}

func (r *Cache) Delete(ctx context.Context, key string) {
	if err := r.c.Del(ctx, key).Err(); err != nil {
		r.warn(ctx, "delete", key, err)
	}
}

func (r *Cache) warn(ctx context.Context, op, key string, err error) {
	logger.From(ctx).Warn("redis cache operation failed",
		logger.Component("cache.redis"),
		logger.String("op", op),
		logger.String("key", key),
		logger.Err(err),
	)
}
