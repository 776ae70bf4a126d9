// Package github implements federated login with GitHub. GitHub is
// plain OAuth 2.0 without ID tokens, so identity comes from the user
// API, and emails often need the separate /user/emails call because
// profile emails can be private.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/security/secretbox"
)

const (
	defaultAuthEndpoint  = "https://github.com/login/oauth/authorize"
	defaultTokenEndpoint = "https://github.com/login/oauth/access_token"
	defaultAPIBase       = "https://api.github.com"
)

var defaultScopes = []string{"user:email", "read:user"}

// Adapter implements providers.Adapter for GitHub.
type Adapter struct {
	box  *secretbox.Box
	http *http.Client

	// overridable for tests
	authEndpoint  string
	tokenEndpoint string
	apiBase       string
}

// New creates the adapter. A nil client gets a 10 second timeout default.
func New(box *secretbox.Box, client *http.Client) *Adapter {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Adapter{
		box:           box,
		http:          client,
		authEndpoint:  defaultAuthEndpoint,
		tokenEndpoint: defaultTokenEndpoint,
		apiBase:       defaultAPIBase,
	}
}

// NewForTest creates an adapter pointed at a test server.
func NewForTest(box *secretbox.Box, client *http.Client, baseURL string) *Adapter {
	a := New(box, client)
	a.authEndpoint = baseURL + "/login/oauth/authorize"
	a.tokenEndpoint = baseURL + "/login/oauth/access_token"
	a.apiBase = baseURL
	return a
}

func (a *Adapter) Name() string { return "github" }

func (a *Adapter) AuthorizeURL(settings repository.ProviderSettings, params providers.AuthorizeParams) (string, error) {
	if settings.ClientID == "" {
		return "", fmt.Errorf("%w: github: missing client_id", providers.ErrMisconfigured)
	}
	scopes := settings.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	u, _ := url.Parse(a.authEndpoint)
	q := u.Query()
	q.Set("client_id", settings.ClientID)
	q.Set("redirect_uri", params.RedirectURI)
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("state", params.State)
	q.Set("allow_signup", "true")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type userInfo struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type emailInfo struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (a *Adapter) Exchange(ctx context.Context, settings repository.ProviderSettings, input providers.ExchangeInput) (*providers.ExternalIdentity, error) {
	secret, err := a.box.Decrypt(settings.ClientSecretEnc)
	if err != nil {
		return nil, fmt.Errorf("%w: github: decrypt client secret: %v", providers.ErrMisconfigured, err)
	}

	form := url.Values{}
	form.Set("client_id", settings.ClientID)
	form.Set("client_secret", secret)
	form.Set("code", input.Code)
	form.Set("redirect_uri", input.RedirectURI)

	tr, err := providers.PostTokenForm(ctx, a.http, a.tokenEndpoint, form)
	if err != nil {
		return nil, err
	}

	var info userInfo
	if err := providers.GetJSON(ctx, a.http, a.apiBase+"/user", tr.AccessToken, &info); err != nil {
		return nil, err
	}
	if info.ID == 0 {
		return nil, providers.ErrIdentityIncomplete
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}
	identity := &providers.ExternalIdentity{
		SubjectID:   strconv.FormatInt(info.ID, 10),
		DisplayName: name,
	}

	email, verified, err := a.selectEmail(ctx, tr.AccessToken, info.Email)
	if err != nil {
		return nil, err
	}
	identity.Email = email
	identity.EmailVerified = verified
	return identity, nil
}

// selectEmail resolves the account email. Preference order: primary and
// verified, then any verified, then any listed; the profile email is a
// last resort and never counts as verified.
func (a *Adapter) selectEmail(ctx context.Context, accessToken, profileEmail string) (string, bool, error) {
	var emails []emailInfo
	if err := providers.GetJSON(ctx, a.http, a.apiBase+"/user/emails", accessToken, &emails); err != nil {
		// The scope may not grant the emails API; fall back to profile.
		if profileEmail != "" {
			return profileEmail, false, nil
		}
		return "", false, err
	}
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email, true, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true, nil
		}
	}
	if len(emails) > 0 {
		return emails[0].Email, false, nil
	}
	if profileEmail != "" {
		return profileEmail, false, nil
	}
	return "", false, providers.ErrIdentityIncomplete
}
