package social

import (
	"context"
	"errors"
	"fmt"
	"time"

	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	tokens "github.com/dropDatabas3/janus/internal/security/token"
	"github.com/dropDatabas3/janus/internal/session"
)

// TokenPair is what a successful exchange or refresh returns.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int // access token lifetime in seconds

	// AccountID identifies the linked account; Provider names the
	// provider the session originated from (exchange only).
	AccountID string
	Provider  string
}

// ExchangeService redeems exchange codes for a session.
type ExchangeService interface {
	// Exchange consumes a single-use exchange code and returns a fresh
	// access/refresh pair for the linked account.
	Exchange(ctx context.Context, tenant *repository.Tenant, code string, meta repository.ClientMeta) (*TokenPair, error)
}

type exchangeService struct {
	deps *Deps
	now  func() time.Time
}

// NewExchangeService creates the service.
func NewExchangeService(deps *Deps) ExchangeService {
	return &exchangeService{deps: deps, now: time.Now}
}

func (s *exchangeService) Exchange(ctx context.Context, tenant *repository.Tenant, code string, meta repository.ClientMeta) (*TokenPair, error) {
	if code == "" {
		return nil, httperrors.ErrBadRequest.WithDetail("missing code")
	}
	now := s.now().UTC()

	var (
		issued   *session.Issued
		consumed *repository.ExchangeCode
	)
	err := s.deps.Store.WithinTx(ctx, func(tx repository.Tx) error {
		ec, err := tx.ExchangeCodes().ConsumeByHash(ctx, tokens.SHA256Hex(code), now)
		if repository.IsNotFound(err) || errors.Is(err, repository.ErrExpired) {
			return httperrors.ErrInvalidExchangeCode
		}
		if err != nil {
			return err
		}
		// Codes are tenant-scoped; a code minted for one tenant is
		// invalid under another tenant's API key.
		if ec.TenantID != tenant.ID {
			return httperrors.ErrInvalidExchangeCode
		}
		consumed = ec
		issued, err = s.deps.Sessions.IssueInTx(ctx, tx, tenant, ec.AccountID, meta)
		return err
	})
	if err != nil {
		return nil, err
	}

	access, err := s.deps.Issuer.Issue(tenant.ID, consumed.AccountID, string(repository.OwnerUser), consumed.Provider)
	if err != nil {
		return nil, fmt.Errorf("social: issue access token: %w", err)
	}

	logger.From(ctx).Info("exchange code redeemed",
		logger.Layer("service"),
		logger.Component("social.exchange"),
		logger.TenantID(tenant.ID),
		logger.AccountID(consumed.AccountID),
		logger.Provider(consumed.Provider),
	)
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: issued.Token,
		ExpiresIn:    int(s.deps.Issuer.AccessTTL().Seconds()),
		AccountID:    consumed.AccountID,
		Provider:     consumed.Provider,
	}, nil
}
