package tenantcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memcache "github.com/dropDatabas3/janus/internal/cache/memory"
	"github.com/dropDatabas3/janus/internal/domain/repository"
)

// countingRepo records how often each lookup reaches the backing store.
type countingRepo struct {
	tenant   *repository.Tenant
	byAPIKey int
	byID     int
}

func (r *countingRepo) GetByAPIKeyHash(_ context.Context, apiKeyHash string) (*repository.Tenant, error) {
	r.byAPIKey++
	if r.tenant == nil || r.tenant.APIKeyHash != apiKeyHash {
		return nil, repository.ErrNotFound
	}
	cp := *r.tenant
	return &cp, nil
}

func (r *countingRepo) GetByID(_ context.Context, id string) (*repository.Tenant, error) {
	r.byID++
	if r.tenant == nil || r.tenant.ID != id {
		return nil, repository.ErrNotFound
	}
	cp := *r.tenant
	return &cp, nil
}

func newResolver(t *testing.T) (*Resolver, *countingRepo) {
	t.Helper()
	inner := &countingRepo{tenant: &repository.Tenant{
		ID:         "t1",
		Slug:       "acme",
		APIKeyHash: "hash-1",
	}}
	return New(inner, memcache.New(time.Minute), time.Minute), inner
}

func TestAPIKeyLookupIsCached(t *testing.T) {
	r, inner := newResolver(t)
	ctx := context.Background()

	first, err := r.GetByAPIKeyHash(ctx, "hash-1")
	require.NoError(t, err)
	second, err := r.GetByAPIKeyHash(ctx, "hash-1")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, inner.byAPIKey)
}

func TestAPIKeyLookupWarmsIDLookup(t *testing.T) {
	r, inner := newResolver(t)
	ctx := context.Background()

	_, err := r.GetByAPIKeyHash(ctx, "hash-1")
	require.NoError(t, err)

	_, err = r.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 0, inner.byID)
}

func TestMissesAreNotCached(t *testing.T) {
	r, inner := newResolver(t)
	ctx := context.Background()

	_, err := r.GetByAPIKeyHash(ctx, "wrong")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = r.GetByAPIKeyHash(ctx, "wrong")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 2, inner.byAPIKey)
}

func TestInvalidateForcesReload(t *testing.T) {
	r, inner := newResolver(t)
	ctx := context.Background()

	tenant, err := r.GetByID(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, 1, inner.byID)

	inner.tenant.SessionCeiling = 9
	r.Invalidate(ctx, tenant)

	reloaded, err := r.GetByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 9, reloaded.SessionCeiling)
	assert.Equal(t, 2, inner.byID)
}
