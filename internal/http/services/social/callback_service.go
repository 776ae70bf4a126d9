package social

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/observability/metrics"
	"github.com/dropDatabas3/janus/internal/providers"
	tokens "github.com/dropDatabas3/janus/internal/security/token"
)

const exchangeCodeBytes = 32

// CallbackService completes a provider handshake.
type CallbackService interface {
	// Callback validates the state against the provider named in the
	// callback route, redeems the provider code, links the external
	// identity to a local account and mints a single-use exchange code.
	// It returns the application redirect carrying it.
	Callback(ctx context.Context, provider, state, code string) (string, error)
}

type callbackService struct {
	deps *Deps
	now  func() time.Time
}

// NewCallbackService creates the service.
func NewCallbackService(deps *Deps) CallbackService {
	return &callbackService{deps: deps, now: time.Now}
}

func (s *callbackService) Callback(ctx context.Context, provider, state, code string) (string, error) {
	if state == "" || code == "" {
		return "", httperrors.ErrBadRequest.WithDetail("missing state or code")
	}
	now := s.now().UTC()
	stateHash := tokens.SHA256Hex(state)

	// Validation read under a short lock. Consumption is deferred to the
	// linking transaction so a failed provider exchange leaves the
	// handshake intact for a retry from the provider side.
	req, err := s.deps.Store.AuthRequests().Get(ctx, stateHash, now)
	if repository.IsNotFound(err) || errors.Is(err, repository.ErrExpired) {
		return "", httperrors.ErrInvalidState
	}
	if err != nil {
		return "", err
	}
	// The state must come back on the callback route it was started for.
	if req.Provider != provider {
		return "", httperrors.ErrInvalidState.WithDetail("state does not belong to this provider")
	}

	log := logger.From(ctx).With(
		logger.Layer("service"),
		logger.Component("social.callback"),
		logger.TenantID(req.TenantID),
		logger.Provider(req.Provider),
	)

	tenant, err := s.deps.Tenants.GetByID(ctx, req.TenantID)
	if err != nil {
		return "", fmt.Errorf("social: resolve tenant: %w", err)
	}
	settings, ok := tenant.ProviderFor(req.Provider)
	if !ok {
		return "", httperrors.ErrProviderDisabled.WithDetail(req.Provider)
	}
	adapter, err := s.deps.Registry.Get(req.Provider)
	if err != nil {
		return "", httperrors.ErrUnknownProvider.WithDetail(req.Provider)
	}
	verifier, err := s.deps.Box.Decrypt(req.VerifierEnc)
	if err != nil {
		return "", fmt.Errorf("social: decrypt verifier: %w", err)
	}

	identity, err := adapter.Exchange(ctx, settings, providers.ExchangeInput{
		Code:         code,
		RedirectURI:  s.deps.callbackURL(req.Provider),
		CodeVerifier: verifier,
	})
	if err != nil {
		log.Warn("provider exchange failed", logger.Err(err))
		metrics.HandshakesTotal.WithLabelValues(req.Provider, "exchange_failed").Inc()
		switch {
		case errors.Is(err, providers.ErrMisconfigured):
			return "", httperrors.ErrProviderDisabled.WithDetail(req.Provider)
		case errors.Is(err, providers.ErrIdentityIncomplete):
			return "", httperrors.ErrProviderUnavailable.WithDetail("provider returned an incomplete identity")
		default:
			return "", httperrors.ErrProviderUnavailable
		}
	}

	rawCode, err := tokens.GenerateOpaqueToken(exchangeCodeBytes)
	if err != nil {
		return "", fmt.Errorf("social: generate exchange code: %w", err)
	}

	// Consume + link + mint atomically. If anything fails the state row
	// survives untouched; if a concurrent callback consumed it first the
	// delete reports false and this request loses.
	err = s.deps.Store.WithinTx(ctx, func(tx repository.Tx) error {
		consumed, err := tx.AuthRequests().DeleteByStateHash(ctx, stateHash)
		if err != nil {
			return err
		}
		if !consumed {
			return httperrors.ErrInvalidState
		}
		account, err := linkIdentity(ctx, tx, tenant, req.Provider, identity)
		if err != nil {
			return err
		}
		return tx.ExchangeCodes().Insert(ctx, repository.ExchangeCode{
			TenantID:  tenant.ID,
			AccountID: account.ID,
			Provider:  req.Provider,
			CodeHash:  tokens.SHA256Hex(rawCode),
			ExpiresAt: now.Add(s.deps.codeTTL()),
		})
	})
	if err != nil {
		metrics.HandshakesTotal.WithLabelValues(req.Provider, "link_failed").Inc()
		return "", err
	}

	metrics.HandshakesTotal.WithLabelValues(req.Provider, "completed").Inc()
	log.Info("handshake completed")
	return appendQuery(req.RedirectURI, url.Values{
		"code":     {rawCode},
		"provider": {req.Provider},
	}), nil
}

// appendQuery merges params into uri, preserving existing query values.
func appendQuery(uri string, params url.Values) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri + "?" + params.Encode()
	}
	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Set(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}
