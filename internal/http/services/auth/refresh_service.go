// Package auth implements refresh-credential rotation and logout for
// both owner aggregates.
package auth

import (
	"context"
	"errors"
	"fmt"

	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/http/services/social"
	"github.com/dropDatabas3/janus/internal/jwt"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/session"
)

// RefreshService rotates refresh credentials.
type RefreshService interface {
	// Refresh rotates the presented token and returns a fresh pair.
	Refresh(ctx context.Context, tenant *repository.Tenant, kind repository.OwnerKind, refreshToken string, meta repository.ClientMeta) (*social.TokenPair, error)
}

type refreshService struct {
	engines map[repository.OwnerKind]*session.Engine
	issuer  *jwt.Issuer
}

// NewRefreshService creates the service over both aggregates.
func NewRefreshService(users, members *session.Engine, issuer *jwt.Issuer) RefreshService {
	return &refreshService{
		engines: map[repository.OwnerKind]*session.Engine{
			repository.OwnerUser:   users,
			repository.OwnerMember: members,
		},
		issuer: issuer,
	}
}

func (s *refreshService) Refresh(ctx context.Context, tenant *repository.Tenant, kind repository.OwnerKind, refreshToken string, meta repository.ClientMeta) (*social.TokenPair, error) {
	if refreshToken == "" {
		return nil, httperrors.ErrBadRequest.WithDetail("missing refresh_token")
	}
	if !kind.Valid() {
		return nil, httperrors.ErrBadRequest.WithDetail("invalid kind")
	}

	issued, err := s.engines[kind].Rotate(ctx, tenant, refreshToken, meta)
	switch {
	case errors.Is(err, session.ErrReplay):
		return nil, httperrors.ErrRefreshReplayed
	case errors.Is(err, session.ErrInvalidCredential):
		return nil, httperrors.ErrInvalidRefreshToken
	case err != nil:
		return nil, err
	}

	access, err := s.issuer.Issue(tenant.ID, issued.Credential.AccountID, string(kind), "")
	if err != nil {
		return nil, fmt.Errorf("auth: issue access token: %w", err)
	}

	logger.From(ctx).Info("refresh credential rotated",
		logger.Layer("service"),
		logger.Component("auth.refresh"),
		logger.TenantID(tenant.ID),
		logger.AccountID(issued.Credential.AccountID),
		logger.String("kind", string(kind)),
	)
	return &social.TokenPair{
		AccessToken:  access,
		RefreshToken: issued.Token,
		ExpiresIn:    int(s.issuer.AccessTTL().Seconds()),
		AccountID:    issued.Credential.AccountID,
	}, nil
}
