// Package microsoft implements federated login with Microsoft Entra ID.
// Endpoints are parameterized by the directory tenant; "common" accepts
// both organizational and personal accounts.
package microsoft

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/security/secretbox"
)

const (
	endpointBase     = "https://login.microsoftonline.com"
	userinfoEndpoint = "https://graph.microsoft.com/oidc/userinfo"

	// DefaultTenant is used when a tenant leaves the directory unset.
	DefaultTenant = "common"
)

var defaultScopes = []string{"openid", "email", "profile"}

// directoryPattern constrains the tenant segment interpolated into the
// endpoint path: a GUID, a domain, or an alias like "common".
var directoryPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.-]*$`)

// Adapter implements providers.Adapter for Microsoft.
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

func (a *Adapter) Name() string { return "microsoft" }

// Directory validates and resolves the directory tenant for settings.
func Directory(settings repository.ProviderSettings) (string, error) {
	dir := settings.MicrosoftTenant
	if dir == "" {
		return DefaultTenant, nil
	}
	if !directoryPattern.MatchString(dir) {
		return "", fmt.Errorf("%w: microsoft: invalid directory tenant %q", providers.ErrMisconfigured, dir)
	}
	return dir, nil
}

func (a *Adapter) AuthorizeURL(settings repository.ProviderSettings, params providers.AuthorizeParams) (string, error) {
	if settings.ClientID == "" {
		return "", fmt.Errorf("%w: microsoft: missing client_id", providers.ErrMisconfigured)
	}
	dir, err := Directory(settings)
	if err != nil {
		return "", err
	}
	scopes := settings.Scopes
	if len(scopes) == 0 {
		scopes = defaultScopes
	}
	u, _ := url.Parse(fmt.Sprintf("%s/%s/oauth2/v2.0/authorize", endpointBase, dir))
	q := u.Query()
	q.Set("client_id", settings.ClientID)
	q.Set("redirect_uri", params.RedirectURI)
	q.Set("response_type", "code")
	q.Set("response_mode", "query")
	q.Set("scope", strings.Join(scopes, " "))
	q.Set("state", params.State)
	q.Set("code_challenge", params.CodeChallenge)
	q.Set("code_challenge_method", "S256")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

type userinfoResponse struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func (a *Adapter) Exchange(ctx context.Context, settings repository.ProviderSettings, input providers.ExchangeInput) (*providers.ExternalIdentity, error) {
	dir, err := Directory(settings)
	if err != nil {
		return nil, err
	}
	secret, err := a.box.Decrypt(settings.ClientSecretEnc)
	if err != nil {
		return nil, fmt.Errorf("%w: microsoft: decrypt client secret: %v", providers.ErrMisconfigured, err)
	}

	form := url.Values{}
	form.Set("client_id", settings.ClientID)
	form.Set("client_secret", secret)
	form.Set("code", input.Code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", input.RedirectURI)
	form.Set("code_verifier", input.CodeVerifier)

	tokenEndpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", endpointBase, dir)
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
	// Entra only asserts emails it controls.
	return &providers.ExternalIdentity{
		SubjectID:     info.Sub,
		Email:         info.Email,
		EmailVerified: true,
		DisplayName:   info.Name,
	}, nil
}
