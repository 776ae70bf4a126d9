// Package tenantcache decorates the tenant repository with a TTL cache.
// Tenant settings change rarely and are read on every request, so a
// short TTL keeps lookups off the database without a busting protocol.
package tenantcache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/dropDatabas3/janus/internal/cache"
	"github.com/dropDatabas3/janus/internal/domain/repository"
)

const (
	keyByAPIKey = "tenant:apikey:"
	keyByID     = "tenant:id:"
)

// Resolver implements repository.TenantRepository with caching.
type Resolver struct {
	inner repository.TenantRepository
	cache cache.Cache
	ttl   time.Duration
}

// New wraps inner with a cache. A zero ttl defaults to 30 seconds.
func New(inner repository.TenantRepository, c cache.Cache, ttl time.Duration) *Resolver {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Resolver{inner: inner, cache: c, ttl: ttl}
}

func (r *Resolver) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*repository.Tenant, error) {
	if t, ok := r.get(ctx, keyByAPIKey+apiKeyHash); ok {
		return t, nil
	}
	t, err := r.inner.GetByAPIKeyHash(ctx, apiKeyHash)
	if err != nil {
		return nil, err
	}
	r.put(ctx, keyByAPIKey+apiKeyHash, t)
	r.put(ctx, keyByID+t.ID, t)
	return t, nil
}

func (r *Resolver) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	if t, ok := r.get(ctx, keyByID+id); ok {
		return t, nil
	}
	t, err := r.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	r.put(ctx, keyByID+id, t)
	return t, nil
}

// Invalidate drops a tenant from the cache after an admin update.
func (r *Resolver) Invalidate(ctx context.Context, t *repository.Tenant) {
	r.cache.Delete(ctx, keyByID+t.ID)
	r.cache.Delete(ctx, keyByAPIKey+t.APIKeyHash)
}

func (r *Resolver) get(ctx context.Context, key string) (*repository.Tenant, bool) {
	b, ok := r.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var t repository.Tenant
	if err := json.Unmarshal(b, &t); err != nil {
		r.cache.Delete(ctx, key)
		return nil, false
	}
	return &t, true
}

func (r *Resolver) put(ctx context.Context, key string, t *repository.Tenant) {
	b, err := json.Marshal(t)
	if err != nil {
		return
	}
	r.cache.Set(ctx, key, b, r.ttl)
}
