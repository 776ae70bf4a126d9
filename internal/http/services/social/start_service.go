package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/providers"
	tokens "github.com/dropDatabas3/janus/internal/security/token"
)

const (
	stateBytes    = 32
	verifierBytes = 64
)

// StartService begins a provider handshake.
type StartService interface {
	// Start returns the provider authorization URL the client should be
	// redirected to. returnURI is where the exchange code will be
	// delivered after the callback completes.
	Start(ctx context.Context, tenant *repository.Tenant, provider, returnURI string) (string, error)
}

type startService struct {
	deps *Deps
	now  func() time.Time
}

// NewStartService creates the service.
func NewStartService(deps *Deps) StartService {
	return &startService{deps: deps, now: time.Now}
}

func (s *startService) Start(ctx context.Context, tenant *repository.Tenant, provider, returnURI string) (string, error) {
	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.start"),
		logger.TenantID(tenant.ID),
		logger.Provider(provider),
	)

	adapter, err := s.deps.Registry.Get(provider)
	if errors.Is(err, providers.ErrUnknownProvider) {
		return "", httperrors.ErrUnknownProvider.WithDetail(provider)
	}
	if err != nil {
		return "", err
	}
	settings, ok := tenant.ProviderFor(provider)
	if !ok {
		return "", httperrors.ErrProviderDisabled.WithDetail(provider)
	}
	if returnURI == "" {
		return "", httperrors.ErrBadRequest.WithDetail("missing return_uri")
	}

	state, err := tokens.GenerateOpaqueToken(stateBytes)
	if err != nil {
		return "", fmt.Errorf("social: generate state: %w", err)
	}
	verifier, err := tokens.GenerateOpaqueToken(verifierBytes)
	if err != nil {
		return "", fmt.Errorf("social: generate verifier: %w", err)
	}
	verifierEnc, err := s.deps.Box.Encrypt(verifier)
	if err != nil {
		return "", fmt.Errorf("social: encrypt verifier: %w", err)
	}

	now := s.now().UTC()
	err = s.deps.Store.AuthRequests().Create(ctx, repository.AuthRequest{
		TenantID:    tenant.ID,
		Provider:    provider,
		StateHash:   tokens.SHA256Hex(state),
		VerifierEnc: verifierEnc,
		RedirectURI: returnURI,
		ExpiresAt:   now.Add(s.deps.stateTTL()),
	})
	if err != nil {
		return "", fmt.Errorf("social: persist handshake: %w", err)
	}

	authorizeURL, err := adapter.AuthorizeURL(settings, providers.AuthorizeParams{
		RedirectURI:   s.deps.callbackURL(provider),
		State:         state,
		CodeChallenge: tokens.SHA256Base64URL(verifier),
	})
	if errors.Is(err, providers.ErrMisconfigured) {
		log.Error("provider misconfigured", logger.Err(err))
		return "", httperrors.ErrProviderDisabled.WithDetail(provider)
	}
	if err != nil {
		return "", err
	}

	log.Info("handshake started")
	return authorizeURL, nil
}
