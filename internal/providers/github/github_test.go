package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/security/secretbox"
)

func testBox(t *testing.T) *secretbox.Box {
	t.Helper()
	box, err := secretbox.NewFromKey(make([]byte, 32))
	require.NoError(t, err)
	return box
}

func encrypt(t *testing.T, box *secretbox.Box, s string) string {
	t.Helper()
	enc, err := box.Encrypt(s)
	require.NoError(t, err)
	return enc
}

// newGitHubServer fakes the token endpoint, /user and /user/emails.
func newGitHubServer(t *testing.T, user map[string]any, emails []map[string]any, emailStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/login/oauth/access_token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "client-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "s3cret", r.PostForm.Get("client_secret"))
		json.NewEncoder(w).Encode(map[string]any{"access_token": "gho_test", "token_type": "bearer"})
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gho_test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(user)
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		if emailStatus != 0 {
			w.WriteHeader(emailStatus)
			return
		}
		json.NewEncoder(w).Encode(emails)
	})
	return httptest.NewServer(mux)
}

func settings(t *testing.T, box *secretbox.Box) repository.ProviderSettings {
	return repository.ProviderSettings{
		Enabled:         true,
		ClientID:        "client-id",
		ClientSecretEnc: encrypt(t, box, "s3cret"),
	}
}

func TestExchangePrefersPrimaryVerifiedEmail(t *testing.T) {
	box := testBox(t)
	srv := newGitHubServer(t,
		map[string]any{"id": 42, "login": "octocat", "name": "Octo Cat"},
		[]map[string]any{
			{"email": "old@example.com", "primary": false, "verified": true},
			{"email": "primary@example.com", "primary": true, "verified": true},
		}, 0)
	defer srv.Close()

	a := NewForTest(box, srv.Client(), srv.URL)
	id, err := a.Exchange(context.Background(), settings(t, box), providers.ExchangeInput{Code: "code"})
	require.NoError(t, err)

	assert.Equal(t, "42", id.SubjectID)
	assert.Equal(t, "primary@example.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "Octo Cat", id.DisplayName)
}

func TestExchangeFallsBackToAnyVerifiedEmail(t *testing.T) {
	box := testBox(t)
	srv := newGitHubServer(t,
		map[string]any{"id": 42, "login": "octocat"},
		[]map[string]any{
			{"email": "unverified@example.com", "primary": true, "verified": false},
			{"email": "verified@example.com", "primary": false, "verified": true},
		}, 0)
	defer srv.Close()

	a := NewForTest(box, srv.Client(), srv.URL)
	id, err := a.Exchange(context.Background(), settings(t, box), providers.ExchangeInput{Code: "code"})
	require.NoError(t, err)

	assert.Equal(t, "verified@example.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "octocat", id.DisplayName)
}

func TestExchangeUnverifiedListedEmailIsNotVerified(t *testing.T) {
	box := testBox(t)
	srv := newGitHubServer(t,
		map[string]any{"id": 42, "login": "octocat"},
		[]map[string]any{
			{"email": "only@example.com", "primary": false, "verified": false},
		}, 0)
	defer srv.Close()

	a := NewForTest(box, srv.Client(), srv.URL)
	id, err := a.Exchange(context.Background(), settings(t, box), providers.ExchangeInput{Code: "code"})
	require.NoError(t, err)

	assert.Equal(t, "only@example.com", id.Email)
	assert.False(t, id.EmailVerified)
}

func TestExchangeProfileEmailFallbackIsUnverified(t *testing.T) {
	box := testBox(t)
	srv := newGitHubServer(t,
		map[string]any{"id": 42, "login": "octocat", "email": "profile@example.com"},
		nil, http.StatusForbidden)
	defer srv.Close()

	a := NewForTest(box, srv.Client(), srv.URL)
	id, err := a.Exchange(context.Background(), settings(t, box), providers.ExchangeInput{Code: "code"})
	require.NoError(t, err)

	assert.Equal(t, "profile@example.com", id.Email)
	assert.False(t, id.EmailVerified)
}

func TestExchangeNoEmailAnywhere(t *testing.T) {
	box := testBox(t)
	srv := newGitHubServer(t,
		map[string]any{"id": 42, "login": "octocat"},
		[]map[string]any{}, 0)
	defer srv.Close()

	a := NewForTest(box, srv.Client(), srv.URL)
	_, err := a.Exchange(context.Background(), settings(t, box), providers.ExchangeInput{Code: "code"})
	assert.ErrorIs(t, err, providers.ErrIdentityIncomplete)
}

func TestAuthorizeURLRequiresClientID(t *testing.T) {
	a := New(testBox(t), nil)
	_, err := a.AuthorizeURL(repository.ProviderSettings{}, providers.AuthorizeParams{State: "s"})
	assert.ErrorIs(t, err, providers.ErrMisconfigured)
}
