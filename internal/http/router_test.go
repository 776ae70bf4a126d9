package http

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	authctrl "github.com/dropDatabas3/janus/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/janus/internal/http/controllers/health"
	socialctrl "github.com/dropDatabas3/janus/internal/http/controllers/social"
	authsvc "github.com/dropDatabas3/janus/internal/http/services/auth"
	socialsvc "github.com/dropDatabas3/janus/internal/http/services/social"
	"github.com/dropDatabas3/janus/internal/jwt"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/providers/google"
	"github.com/dropDatabas3/janus/internal/security/secretbox"
	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/session"
	"github.com/dropDatabas3/janus/internal/store/memory"
)

const testAPIKey = "test-api-key"

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	store := memory.New()
	store.SeedTenant(&repository.Tenant{
		ID:         "t1",
		Slug:       "acme",
		APIKeyHash: tokens.SHA256Hex(testAPIKey),
		Providers: map[string]repository.ProviderSettings{
			"google": {Enabled: true, ClientID: "cid"},
		},
	})

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	box, err := secretbox.NewFromKey(key)
	require.NoError(t, err)

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	issuer, err := jwt.New(jwt.Config{Issuer: "https://id.test"}, priv)
	require.NoError(t, err)

	registry := providers.NewRegistry()
	registry.Register(google.New(box, http.DefaultClient))

	users := session.New(store, repository.OwnerUser, session.Config{}, nil)
	members := session.New(store, repository.OwnerMember, session.Config{}, nil)

	deps := &socialsvc.Deps{
		Store:    store,
		Tenants:  store.Tenants(),
		Registry: registry,
		Box:      box,
		Sessions: users,
		Issuer:   issuer,
		BaseURL:  "https://id.test",
	}

	return NewRouter(RouterDeps{
		Tenants:   store.Tenants(),
		Start:     socialctrl.NewStartController(socialsvc.NewStartService(deps)),
		Callback:  socialctrl.NewCallbackController(socialsvc.NewCallbackService(deps)),
		Exchange:  socialctrl.NewExchangeController(socialsvc.NewExchangeService(deps)),
		Providers: socialctrl.NewProvidersController(socialsvc.NewProvidersService(deps)),
		Refresh:   authctrl.NewRefreshController(authsvc.NewRefreshService(users, members, issuer)),
		Logout:    authctrl.NewLogoutController(authsvc.NewLogoutService(users, members)),
		Health:    healthctrl.New(nil),
	})
}

func doJSON(t *testing.T, h http.Handler, method, path, apiKey, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Code
}

func TestHealthz(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "ROUTE_NOT_FOUND", errorCode(t, rec))
}

func TestProtectedRoutesRequireAPIKey(t *testing.T) {
	router := newTestRouter(t)
	for _, path := range []string{
		"/v1/auth/social/start",
		"/v1/auth/social/exchange",
		"/v1/auth/refresh",
		"/v1/auth/logout",
	} {
		rec := doJSON(t, router, http.MethodPost, path, "", `{}`)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "INVALID_API_KEY", errorCode(t, rec), path)
	}
}

func TestWrongAPIKeyRejected(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet, "/v1/auth/providers", "wrong-key", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_API_KEY", errorCode(t, rec))
}

func TestProvidersList(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet, "/v1/auth/providers", testAPIKey, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Providers []struct {
			Name    string `json:"name"`
			Enabled bool   `json:"enabled"`
		} `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Providers, 1)
	assert.Equal(t, "google", body.Providers[0].Name)
	assert.True(t, body.Providers[0].Enabled)
}

func TestStartReturnsAuthorizeURL(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodPost, "/v1/auth/social/start",
		testAPIKey, `{"provider":"google","return_uri":"https://app.acme.test/cb"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		AuthorizeURL string `json:"authorize_url"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Contains(t, body.AuthorizeURL, "accounts.google.com")
	assert.Contains(t, body.AuthorizeURL, "code_challenge=")
}

func TestAuthorizeRedirectsToProvider(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet,
		"/v1/auth/oauth/google/authorize?redirect_uri=https://app.acme.test/cb", testAPIKey, "")
	require.Equal(t, http.StatusFound, rec.Code)

	loc := rec.Header().Get("Location")
	assert.Contains(t, loc, "accounts.google.com")
	assert.Contains(t, loc, "code_challenge_method=S256")
}

func TestStartUnknownProvider(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodPost, "/v1/auth/social/start",
		testAPIKey, `{"provider":"myspace"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNKNOWN_PROVIDER", errorCode(t, rec))
}

func TestRefreshWithUnknownToken(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodPost, "/v1/auth/refresh",
		testAPIKey, `{"refresh_token":"garbage"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_REFRESH_TOKEN", errorCode(t, rec))
}

func TestCallbackWithUnknownState(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet,
		"/v1/auth/oauth/google/callback?state=bogus&code=abc", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, rec))
}

func TestRequestIDHeaderSet(t *testing.T) {
	rec := doJSON(t, newTestRouter(t), http.MethodGet, "/healthz", "", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
