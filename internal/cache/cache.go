// Package cache provides a small byte cache with memory and redis
// backends. The service uses it to keep resolved tenant settings close
// to the handlers, off the hot path of every handshake.
package cache

import (
	"context"
	"time"
)

// Cache is the minimal surface the service needs. Lookups are best
// effort: a backend failure reads as a miss and never fails a request.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Config selects and tunes a backend.
type Config struct {
	Driver     string // "memory" | "redis"
	RedisAddr  string
	RedisDB    int
	DefaultTTL time.Duration
}
