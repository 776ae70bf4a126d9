// Package memory backs the byte cache with an in-process TTL map. It is
// the default driver and the right one for single-instance deployments.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/janus/internal/cache"
)

type Mem struct{ c *gocache.Cache }

// New creates the cache. Expired entries are reaped every minute.
func New(defaultTTL time.Duration) cache.Cache {
	return &Mem{c: gocache.New(defaultTTL, time.Minute)}
}

func (m *Mem) Get(_ context.Context, key string) ([]byte, bool) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *Mem) Set(_ context.Context, key string, value []byte, ttl time.Duration) {
	m.c.Set(key, value, ttl)
}

func (m *Mem) Delete(_ context.Context, key string) { m.c.Delete(key) }
