package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/janus/internal/alert"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/store/memory"
)

type captureNotifier struct {
	mu     sync.Mutex
	events []alert.Event
}

func (c *captureNotifier) Notify(_ context.Context, ev alert.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func testTenant(ceiling int) *repository.Tenant {
	return &repository.Tenant{ID: "tenant-1", Slug: "acme", SessionCeiling: ceiling}
}

func newEngine(t *testing.T, cfg Config) (*Engine, *memory.Store, *captureNotifier) {
	t.Helper()
	st := memory.New()
	n := &captureNotifier{}
	return New(st, repository.OwnerUser, cfg, n), st, n
}

func TestIssueAndRotate(t *testing.T) {
	e, _, _ := newEngine(t, Config{RevokeChainOnReplay: true})
	ctx := context.Background()

	first, err := e.Issue(ctx, testTenant(0), "acct-1", repository.ClientMeta{IP: "10.0.0.1"})
	require.NoError(t, err)
	assert.NotEmpty(t, first.Token)
	assert.Equal(t, "acct-1", first.Credential.AccountID)

	second, err := e.Rotate(ctx, testTenant(0), first.Token, repository.ClientMeta{})
	require.NoError(t, err)
	assert.NotEqual(t, first.Token, second.Token)
	assert.Equal(t, "acct-1", second.Credential.AccountID)

	// the rotated token no longer works
	_, err = e.Rotate(ctx, testTenant(0), first.Token, repository.ClientMeta{})
	assert.ErrorIs(t, err, ErrReplay)
}

func TestRotateUnknownToken(t *testing.T) {
	e, _, _ := newEngine(t, Config{})
	_, err := e.Rotate(context.Background(), testTenant(0), "never-issued", repository.ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestReplayRevokesChainAndAlerts(t *testing.T) {
	e, st, n := newEngine(t, Config{RevokeChainOnReplay: true})
	ctx := context.Background()

	first, err := e.Issue(ctx, testTenant(0), "acct-1", repository.ClientMeta{})
	require.NoError(t, err)
	second, err := e.Rotate(ctx, testTenant(0), first.Token, repository.ClientMeta{})
	require.NoError(t, err)
	third, err := e.Rotate(ctx, testTenant(0), second.Token, repository.ClientMeta{})
	require.NoError(t, err)

	// replaying the first token kills the whole chain
	_, err = e.Rotate(ctx, testTenant(0), first.Token, repository.ClientMeta{IP: "203.0.113.9"})
	assert.ErrorIs(t, err, ErrReplay)

	// the newest credential is revoked too
	_, err = e.Rotate(ctx, testTenant(0), third.Token, repository.ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	require.Len(t, n.events, 1)
	assert.Equal(t, "refresh_replay", n.events[0].Kind)
	assert.Equal(t, "acct-1", n.events[0].AccountID)
	assert.Equal(t, "203.0.113.9", n.events[0].IP)

	// chain revocation recorded the reason
	cred, err := st.Credentials(repository.OwnerUser).GetByHash(ctx, third.Credential.TokenHash)
	require.NoError(t, err)
	assert.Equal(t, ReasonReplay, cred.RevokeReason)
}

func TestReplayWithoutChainRevocation(t *testing.T) {
	e, _, n := newEngine(t, Config{RevokeChainOnReplay: false})
	ctx := context.Background()

	first, err := e.Issue(ctx, testTenant(0), "acct-1", repository.ClientMeta{})
	require.NoError(t, err)
	second, err := e.Rotate(ctx, testTenant(0), first.Token, repository.ClientMeta{})
	require.NoError(t, err)

	_, err = e.Rotate(ctx, testTenant(0), first.Token, repository.ClientMeta{})
	assert.ErrorIs(t, err, ErrReplay)
	assert.Len(t, n.events, 1)

	// descendant stays usable
	_, err = e.Rotate(ctx, testTenant(0), second.Token, repository.ClientMeta{})
	assert.NoError(t, err)
}

func TestSessionCeilingRevokesOldest(t *testing.T) {
	e, _, _ := newEngine(t, Config{})
	ctx := context.Background()
	tenant := testTenant(2)

	a, err := e.Issue(ctx, tenant, "acct-1", repository.ClientMeta{})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	b, err := e.Issue(ctx, tenant, "acct-1", repository.ClientMeta{})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	// third issuance evicts the oldest
	c, err := e.Issue(ctx, tenant, "acct-1", repository.ClientMeta{})
	require.NoError(t, err)

	_, err = e.Rotate(ctx, tenant, a.Token, repository.ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = e.Rotate(ctx, tenant, b.Token, repository.ClientMeta{})
	assert.NoError(t, err)
	_, err = e.Rotate(ctx, tenant, c.Token, repository.ClientMeta{})
	assert.NoError(t, err)
}

func TestRevokeIsIdempotent(t *testing.T) {
	e, _, _ := newEngine(t, Config{})
	ctx := context.Background()

	issued, err := e.Issue(ctx, testTenant(0), "acct-1", repository.ClientMeta{})
	require.NoError(t, err)

	require.NoError(t, e.Revoke(ctx, testTenant(0), issued.Token, ReasonLogout))
	require.NoError(t, e.Revoke(ctx, testTenant(0), issued.Token, ReasonLogout))
	require.NoError(t, e.Revoke(ctx, testTenant(0), "never-issued", ReasonLogout))

	// explicitly revoked, not rotated: plain invalid, not replay
	_, err = e.Rotate(ctx, testTenant(0), issued.Token, repository.ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestRotateScopedToIssuingTenant(t *testing.T) {
	e, _, n := newEngine(t, Config{RevokeChainOnReplay: true})
	ctx := context.Background()
	other := &repository.Tenant{ID: "tenant-2", Slug: "rival"}

	issued, err := e.Issue(ctx, testTenant(0), "acct-1", repository.ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", issued.Credential.TenantID)

	// another tenant's API key cannot rotate the credential
	_, err = e.Rotate(ctx, other, issued.Token, repository.ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredential)
	assert.Empty(t, n.events)

	// and the failed attempt did not damage it for the owner
	rotated, err := e.Rotate(ctx, testTenant(0), issued.Token, repository.ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", rotated.Credential.TenantID)
}

func TestRevokeScopedToIssuingTenant(t *testing.T) {
	e, _, _ := newEngine(t, Config{})
	ctx := context.Background()
	other := &repository.Tenant{ID: "tenant-2", Slug: "rival"}

	issued, err := e.Issue(ctx, testTenant(0), "acct-1", repository.ClientMeta{})
	require.NoError(t, err)

	// cross-tenant revoke is a silent no-op
	require.NoError(t, e.Revoke(ctx, other, issued.Token, ReasonLogout))
	_, err = e.Rotate(ctx, testTenant(0), issued.Token, repository.ClientMeta{})
	assert.NoError(t, err)
}

func TestExpiredCredentialRejected(t *testing.T) {
	e, _, _ := newEngine(t, Config{RefreshTTL: time.Minute})
	ctx := context.Background()

	issued, err := e.Issue(ctx, testTenant(0), "acct-1", repository.ClientMeta{})
	require.NoError(t, err)

	e.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = e.Rotate(ctx, testTenant(0), issued.Token, repository.ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}
