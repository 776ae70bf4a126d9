package social

import (
	"context"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

// ProviderInfo describes one provider as seen by a tenant's app.
type ProviderInfo struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ProvidersService lists the providers available to a tenant.
type ProvidersService interface {
	List(ctx context.Context, tenant *repository.Tenant) []ProviderInfo
}

type providersService struct {
	deps *Deps
}

// NewProvidersService creates the service.
func NewProvidersService(deps *Deps) ProvidersService {
	return &providersService{deps: deps}
}

func (s *providersService) List(_ context.Context, tenant *repository.Tenant) []ProviderInfo {
	out := make([]ProviderInfo, 0)
	for _, name := range s.deps.Registry.Names() {
		_, enabled := tenant.ProviderFor(name)
		out = append(out, ProviderInfo{Name: name, Enabled: enabled})
	}
	return out
}
