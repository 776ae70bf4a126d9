// Package social implements the federated login flows: handshake start,
// provider callback with idempotent account linking, exchange code
// redemption and provider discovery.
package social

import (
	"strings"
	"time"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/jwt"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/security/secretbox"
	"github.com/dropDatabas3/janus/internal/session"
)

// Deps carries the collaborators shared by the social services.
type Deps struct {
	Store    repository.Store
	Tenants  repository.TenantRepository
	Registry *providers.Registry
	Box      *secretbox.Box
	Sessions *session.Engine // end-user aggregate
	Issuer   *jwt.Issuer

	// BaseURL is the public origin of this service; provider callback
	// URLs are derived from it per provider.
	BaseURL string

	// StateTTL bounds the handshake lifetime. Defaults to 10 minutes.
	StateTTL time.Duration

	// CodeTTL bounds the exchange code lifetime. Defaults to 60 seconds.
	CodeTTL time.Duration
}

// callbackURL is the redirect target registered with the provider. The
// same value must be sent on authorize and on code exchange.
func (d *Deps) callbackURL(provider string) string {
	return strings.TrimRight(d.BaseURL, "/") + "/v1/auth/oauth/" + provider + "/callback"
}

func (d *Deps) stateTTL() time.Duration {
	if d.StateTTL > 0 {
		return d.StateTTL
	}
	return 10 * time.Minute
}

func (d *Deps) codeTTL() time.Duration {
	if d.CodeTTL > 0 {
		return d.CodeTTL
	}
	return 60 * time.Second
}
