package social

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/jwt"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/security/secretbox"
	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/session"
	"github.com/dropDatabas3/janus/internal/store/memory"
)

// stubAdapter plays the provider: it records the authorize params and
// verifies the PKCE verifier round-trips on exchange.
type stubAdapter struct {
	name          string
	identity      providers.ExternalIdentity
	lastState     string
	lastChallenge string
	exchangeErr   error
}

func (a *stubAdapter) Name() string { return a.name }

func (a *stubAdapter) AuthorizeURL(_ repository.ProviderSettings, p providers.AuthorizeParams) (string, error) {
	a.lastState = p.State
	a.lastChallenge = p.CodeChallenge
	return "https://provider.test/authorize?state=" + url.QueryEscape(p.State), nil
}

func (a *stubAdapter) Exchange(_ context.Context, _ repository.ProviderSettings, in providers.ExchangeInput) (*providers.ExternalIdentity, error) {
	if a.exchangeErr != nil {
		return nil, a.exchangeErr
	}
	if tokens.SHA256Base64URL(in.CodeVerifier) != a.lastChallenge {
		return nil, fmt.Errorf("%w: verifier does not match challenge", providers.ErrProviderFailure)
	}
	id := a.identity
	return &id, nil
}

type fixture struct {
	store    *memory.Store
	tenant   *repository.Tenant
	adapter  *stubAdapter
	deps     *Deps
	start    StartService
	callback CallbackService
	exchange ExchangeService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memory.New()
	tenant := &repository.Tenant{
		ID:   "tenant-1",
		Slug: "acme",
		Providers: map[string]repository.ProviderSettings{
			"google": {Enabled: true, ClientID: "client-id"},
		},
	}
	st.SeedTenant(tenant)

	box, err := secretbox.NewFromKey(make([]byte, 32))
	require.NoError(t, err)

	adapter := &stubAdapter{
		name: "google",
		identity: providers.ExternalIdentity{
			SubjectID:     "sub-123",
			Email:         "jane@example.com",
			EmailVerified: true,
			DisplayName:   "Jane Doe",
		},
	}
	registry := providers.NewRegistry()
	registry.Register(adapter)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	issuer, err := jwt.New(jwt.Config{Issuer: "https://idp.test", Audience: "app"}, priv)
	require.NoError(t, err)

	deps := &Deps{
		Store:    st,
		Tenants:  st.Tenants(),
		Registry: registry,
		Box:      box,
		Sessions: session.New(st, repository.OwnerUser, session.Config{RevokeChainOnReplay: true}, nil),
		Issuer:   issuer,
		BaseURL:  "https://idp.test",
	}
	return &fixture{
		store:    st,
		tenant:   tenant,
		adapter:  adapter,
		deps:     deps,
		start:    NewStartService(deps),
		callback: NewCallbackService(deps),
		exchange: NewExchangeService(deps),
	}
}

// runFlow walks start -> callback and returns the minted exchange code.
func (f *fixture) runFlow(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	_, err := f.start.Start(ctx, f.tenant, "google", "https://app.example.com/done")
	require.NoError(t, err)

	redirect, err := f.callback.Callback(ctx, "google", f.adapter.lastState, "provider-code")
	require.NoError(t, err)

	u, err := url.Parse(redirect)
	require.NoError(t, err)
	assert.Equal(t, "app.example.com", u.Host)
	assert.Equal(t, "google", u.Query().Get("provider"))
	code := u.Query().Get("code")
	require.NotEmpty(t, code)
	return code
}

func (f *fixture) account(t *testing.T, id string) *repository.Account {
	t.Helper()
	var acc *repository.Account
	err := f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		var err error
		acc, err = tx.Accounts(repository.OwnerUser).GetByIDForUpdate(context.Background(), id)
		return err
	})
	require.NoError(t, err)
	return acc
}

func (f *fixture) connectionCount(t *testing.T) int {
	t.Helper()
	n := 0
	err := f.store.WithinTx(context.Background(), func(tx repository.Tx) error {
		_, err := tx.Connections().GetBySubject(context.Background(), f.tenant.ID, "google", "sub-123")
		if err == nil {
			n = 1
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

func TestFullFlowMintsWorkingExchangeCode(t *testing.T) {
	f := newFixture(t)
	code := f.runFlow(t)

	pair, err := f.exchange.Exchange(context.Background(), f.tenant, code, repository.ClientMeta{})
	require.NoError(t, err)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Greater(t, pair.ExpiresIn, 0)

	claims, err := f.deps.Issuer.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "google", claims.AMR)
}

func TestExchangeCodeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	code := f.runFlow(t)
	ctx := context.Background()

	_, err := f.exchange.Exchange(ctx, f.tenant, code, repository.ClientMeta{})
	require.NoError(t, err)

	_, err = f.exchange.Exchange(ctx, f.tenant, code, repository.ClientMeta{})
	assert.ErrorIs(t, err, httperrors.ErrInvalidExchangeCode)
}

func TestExchangeCodeScopedToTenant(t *testing.T) {
	f := newFixture(t)
	code := f.runFlow(t)

	other := &repository.Tenant{ID: "tenant-2", Slug: "other"}
	_, err := f.exchange.Exchange(context.Background(), other, code, repository.ClientMeta{})
	assert.ErrorIs(t, err, httperrors.ErrInvalidExchangeCode)
}

func TestStateIsSingleUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.start.Start(ctx, f.tenant, "google", "https://app.example.com/done")
	require.NoError(t, err)
	state := f.adapter.lastState

	_, err = f.callback.Callback(ctx, "google", state, "provider-code")
	require.NoError(t, err)

	_, err = f.callback.Callback(ctx, "google", state, "provider-code")
	assert.ErrorIs(t, err, httperrors.ErrInvalidState)
}

func TestCallbackUnknownState(t *testing.T) {
	f := newFixture(t)
	_, err := f.callback.Callback(context.Background(), "google", "made-up-state", "provider-code")
	assert.ErrorIs(t, err, httperrors.ErrInvalidState)
}

func TestCallbackWrongProviderRoute(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.start.Start(ctx, f.tenant, "google", "https://app.example.com/done")
	require.NoError(t, err)

	// a google state presented on another provider's callback is refused
	_, err = f.callback.Callback(ctx, "github", f.adapter.lastState, "provider-code")
	assert.ErrorIs(t, err, httperrors.ErrInvalidState)

	// and stays alive for the right route
	_, err = f.callback.Callback(ctx, "google", f.adapter.lastState, "provider-code")
	assert.NoError(t, err)
}

func TestCallbackFailedExchangeKeepsStateAlive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.start.Start(ctx, f.tenant, "google", "https://app.example.com/done")
	require.NoError(t, err)
	state := f.adapter.lastState

	f.adapter.exchangeErr = providers.ErrProviderFailure
	_, err = f.callback.Callback(ctx, "google", state, "provider-code")
	assert.ErrorIs(t, err, httperrors.ErrProviderUnavailable)

	// the provider retry with the same state still works
	f.adapter.exchangeErr = nil
	_, err = f.callback.Callback(ctx, "google", state, "provider-code")
	assert.NoError(t, err)
}

func TestRepeatedLoginReusesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	codeA := f.runFlow(t)
	codeB := f.runFlow(t)

	pairA, err := f.exchange.Exchange(ctx, f.tenant, codeA, repository.ClientMeta{})
	require.NoError(t, err)
	pairB, err := f.exchange.Exchange(ctx, f.tenant, codeB, repository.ClientMeta{})
	require.NoError(t, err)

	claimsA, err := f.deps.Issuer.Verify(pairA.AccessToken)
	require.NoError(t, err)
	claimsB, err := f.deps.Issuer.Verify(pairB.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, claimsA.Subject, claimsB.Subject)
	assert.Equal(t, 1, f.connectionCount(t))
}

func TestLinkingAttachesToVerifiedAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var existingID string
	err := f.store.WithinTx(ctx, func(tx repository.Tx) error {
		acc, err := tx.Accounts(repository.OwnerUser).Create(ctx, repository.CreateAccountInput{
			TenantID:      f.tenant.ID,
			Email:         "jane@example.com",
			EmailVerified: true,
			PasswordHash:  "$2a$10$existing",
		})
		if err != nil {
			return err
		}
		existingID = acc.ID
		return nil
	})
	require.NoError(t, err)

	code := f.runFlow(t)
	pair, err := f.exchange.Exchange(ctx, f.tenant, code, repository.ClientMeta{})
	require.NoError(t, err)

	claims, err := f.deps.Issuer.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, existingID, claims.Subject)
}

func TestLinkingRejectsUnverifiedProviderEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.store.WithinTx(ctx, func(tx repository.Tx) error {
		_, err := tx.Accounts(repository.OwnerUser).Create(ctx, repository.CreateAccountInput{
			TenantID:      f.tenant.ID,
			Email:         "jane@example.com",
			EmailVerified: true,
		})
		return err
	})
	require.NoError(t, err)

	f.adapter.identity.EmailVerified = false
	_, err = f.start.Start(ctx, f.tenant, "google", "https://app.example.com/done")
	require.NoError(t, err)
	_, err = f.callback.Callback(ctx, "google", f.adapter.lastState, "provider-code")

	appErr := httperrors.FromError(err)
	assert.Equal(t, "EMAIL_OWNERSHIP_UNVERIFIED", appErr.Code)
	assert.Equal(t, 0, f.connectionCount(t))
}

func TestLinkingClaimsUnverifiedLocalAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var existingID string
	err := f.store.WithinTx(ctx, func(tx repository.Tx) error {
		acc, err := tx.Accounts(repository.OwnerUser).Create(ctx, repository.CreateAccountInput{
			TenantID:      f.tenant.ID,
			Email:         "jane@example.com",
			EmailVerified: false,
		})
		if err != nil {
			return err
		}
		existingID = acc.ID
		return nil
	})
	require.NoError(t, err)

	// the provider vouches for the email, so the existing account is
	// claimed and its email marked verified
	code := f.runFlow(t)
	pair, err := f.exchange.Exchange(ctx, f.tenant, code, repository.ClientMeta{})
	require.NoError(t, err)

	claims, err := f.deps.Issuer.Verify(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, existingID, claims.Subject)

	acc := f.account(t, existingID)
	assert.True(t, acc.EmailVerified)
	assert.Equal(t, "Jane Doe", acc.DisplayName)
}

func TestRepeatLoginPromotesAccount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// first login: provider has not verified the email yet and sends no
	// profile name, so the created account carries neither
	f.adapter.identity.EmailVerified = false
	f.adapter.identity.DisplayName = ""
	code := f.runFlow(t)
	pair, err := f.exchange.Exchange(ctx, f.tenant, code, repository.ClientMeta{})
	require.NoError(t, err)
	claims, err := f.deps.Issuer.Verify(pair.AccessToken)
	require.NoError(t, err)

	acc := f.account(t, claims.Subject)
	assert.False(t, acc.EmailVerified)
	assert.Empty(t, acc.DisplayName)

	// second login over the existing connection folds the now verified
	// email and the profile name into the account
	f.adapter.identity.EmailVerified = true
	f.adapter.identity.DisplayName = "Jane Doe"
	f.runFlow(t)

	acc = f.account(t, claims.Subject)
	assert.True(t, acc.EmailVerified)
	assert.Equal(t, "Jane Doe", acc.DisplayName)
}

func TestStartRejectsDisabledProvider(t *testing.T) {
	f := newFixture(t)
	_, err := f.start.Start(context.Background(), f.tenant, "github", "https://app.example.com/done")
	assert.Equal(t, "UNKNOWN_PROVIDER", httperrors.FromError(err).Code)

	f.tenant.Providers["google"] = repository.ProviderSettings{Enabled: false}
	_, err = f.start.Start(context.Background(), f.tenant, "google", "https://app.example.com/done")
	assert.Equal(t, "PROVIDER_DISABLED", httperrors.FromError(err).Code)
}

func TestExpiredStateRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.deps.StateTTL = time.Minute

	_, err := f.start.Start(ctx, f.tenant, "google", "https://app.example.com/done")
	require.NoError(t, err)

	cb := NewCallbackService(f.deps).(*callbackService)
	cb.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	_, err = cb.Callback(ctx, "google", f.adapter.lastState, "provider-code")
	assert.ErrorIs(t, err, httperrors.ErrInvalidState)
}
