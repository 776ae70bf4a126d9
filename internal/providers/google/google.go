// Package google implements federated login with Google (OIDC).
package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/security/secretbox"
)

const (
	authEndpoint     = "https://accounts.google.com/o/oauth2/v2/auth"
	tokenEndpoint    = "https://oauth2.googleapis.com/token"
	userinfoEndpoint = "https://openidconnect.googleapis.com/v1/userinfo"
)

var defaultScopes = []string{"openid", "email", "profile"}

// Adapter implements providers.Adapter for Google.
type Adapter struct {
	box  *secretbox.Box
	http *http.Client
}

// New creates the adapter. A nil client gets a 10 second timeout default.
func New(box *secretbox.Box, client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Adapter{box: box, http: client}
}

func (a *Adapter) Name() string { return "google" }

func (a *Adapter) AuthorizeURL(settings repository.ProviderSettings, params providers.AuthorizeParams) (string, error) {
	if settings.ClientID == "" {
		return "", fmt.Errorf("%w: google: missing client_id", providers.ErrMisconfigured)
	}
	scopes := settings.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	u, _ := url.Parse(authEndpoint)
	q := u.Query()
	q.Set("client_id", settings.ClientID)
	q.Set("redirect_uri", params.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("state", params.State)
	q.Set("code_challenge", params.CodeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// userinfoResponse is the OIDC userinfo payload.
type userinfoResponse struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (a *Adapter) Exchange(ctx context.Context, settings repository.ProviderSettings, input providers.ExchangeInput) (*providers.ExternalIdentity, error) {
	secret, err := a.box.Decrypt(settings.ClientSecretEnc)
	if err != nil {
		return nil, fmt.Errorf("%w: google: decrypt client secret: %v", providers.ErrMisconfigured, err)
	}

	form := url.Values{}
	form.Set("client_id", settings.ClientID)
	form.Set("client_secret", secret)
	form.Set("code", input.Code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", input.RedirectURI)
	form.Set("code_verifier", input.CodeVerifier)

	tr, err := providers.PostTokenForm(ctx, a.http, tokenEndpoint, form)
	if err != nil {
		return nil, err
	}

	var info userinfoResponse
	if err := providers.GetJSON(ctx, a.http, userinfoEndpoint, tr.AccessToken, &info); err != nil {
		return nil, err
	}
	if info.Sub == "" || info.Email == "" {
		return nil, providers.ErrIdentityIncomplete
	}
	return &providers.ExternalIdentity{
		SubjectID:     info.Sub,
		Email:         info.Email,
		EmailVerified: info.EmailVerified,
		DisplayName:   info.Name,
	}, nil
}
