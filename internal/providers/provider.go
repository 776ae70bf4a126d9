// Package providers defines the federated login adapters.
//
// Each tenant enables providers independently; the handlers look an
// adapter up by name and hand it the tenant's settings per call, so one
// adapter instance serves every tenant.
//
// Adapters normalize very different upstream protocols (OIDC, plain
// OAuth 2.0, Apple's signed client secret) into one ExternalIdentity.
package providers

import (
	"context"
	"errors"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

var (
	// ErrUnknownProvider indicates the provider name is not registered.
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrMisconfigured indicates the tenant's settings for the provider
	// are incomplete or invalid.
	ErrMisconfigured = errors.New("provider misconfigured")

	// ErrProviderFailure indicates the upstream provider rejected the
	// exchange or returned an unusable response.
	ErrProviderFailure = errors.New("provider failure")

	// ErrIdentityIncomplete indicates the provider response lacked a
	// subject identifier or an email.
	ErrIdentityIncomplete = errors.New("identity incomplete")
)

// ExternalIdentity is a normalized identity assertion from any provider.
type ExternalIdentity struct {
	SubjectID     string
	Email         string
	EmailVerified bool
	DisplayName   string
}

// AuthorizeParams carries the per-handshake values for the redirect URL.
type AuthorizeParams struct {
	RedirectURI   string
	State         string
	CodeChallenge string // PKCE S256 challenge; empty for providers without PKCE
}

// ExchangeInput carries the callback values for the code exchange.
type ExchangeInput struct {
	Code         string
	RedirectURI  string
	CodeVerifier string
}

// Adapter is one identity provider integration.
type Adapter interface {
	// Name returns the stable provider name ("google", "github", ...).
	Name() string

	// AuthorizeURL builds the provider's authorization redirect for the
	// tenant's settings. Returns ErrMisconfigured when settings are
	// incomplete.
	AuthorizeURL(settings repository.ProviderSettings, params AuthorizeParams) (string, error)

	// Exchange redeems the provider's authorization code and returns the
	// normalized identity.
	Exchange(ctx context.Context, settings repository.ProviderSettings, input ExchangeInput) (*ExternalIdentity, error)
}
