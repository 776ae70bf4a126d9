package repository

import (
	"context"
	"time"
)

// ProviderSettings is the per-tenant configuration of one identity provider.
// Secret material is stored encrypted (secretbox marker) and decrypted only
// by the provider adapter at exchange time.
type ProviderSettings struct {
	Enabled         bool     `json:"enabled"`
	ClientID        string   `json:"client_id"`
	ClientSecretEnc string   `json:"client_secret_enc,omitempty"`
	Scopes          []string `json:"scopes,omitempty"`

	// Microsoft: directory tenant interpolated into the endpoints.
	// Defaults to "common" when empty.
	MicrosoftTenant string `json:"microsoft_tenant,omitempty"`

	// Apple: no static secret; one is minted per exchange from these.
	AppleTeamID        string `json:"apple_team_id,omitempty"`
	AppleServiceID     string `json:"apple_service_id,omitempty"`
	AppleKeyID         string `json:"apple_key_id,omitempty"`
	ApplePrivateKeyEnc string `json:"apple_private_key_enc,omitempty"`
}

// Tenant is the isolation boundary. All accounts, connections and
// credentials are scoped to one tenant.
type Tenant struct {
	ID             string
	Slug           string
	Name           string
	APIKeyHash     string
	SessionCeiling int // max concurrent active refresh credentials per account
	Providers      map[string]ProviderSettings
	CreatedAt      time.Time
}

// ProviderFor returns the settings for a provider name, or false when the
// provider is absent or disabled for this tenant.
func (t *Tenant) ProviderFor(name string) (ProviderSettings, bool) {
	ps, ok := t.Providers[name]
	if !ok || !ps.Enabled {
		return ProviderSettings{}, false
	}
	return ps, true
}

// TenantRepository resolves tenants. Tenant CRUD lives elsewhere; this
// service only reads.
type TenantRepository interface {
	// GetByAPIKeyHash resolves a tenant by the hash of its API key.
	// Returns ErrNotFound for unknown keys.
	GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*Tenant, error)

	// GetByID resolves a tenant by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id string) (*Tenant, error)
}
