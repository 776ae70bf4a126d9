package auth

import (
	"context"

	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/session"
)

// LogoutService revokes refresh credentials.
type LogoutService interface {
	// Logout revokes the presented token under the calling tenant.
	// Idempotent: unknown or already revoked tokens succeed.
	Logout(ctx context.Context, tenant *repository.Tenant, kind repository.OwnerKind, refreshToken string) error
}

type logoutService struct {
	engines map[repository.OwnerKind]*session.Engine
}

// NewLogoutService creates the service over both aggregates.
func NewLogoutService(users, members *session.Engine) LogoutService {
	return &logoutService{
		engines: map[repository.OwnerKind]*session.Engine{
			repository.OwnerUser:   users,
			repository.OwnerMember: members,
		},
	}
}

func (s *logoutService) Logout(ctx context.Context, tenant *repository.Tenant, kind repository.OwnerKind, refreshToken string) error {
	if refreshToken == "" {
		return httperrors.ErrBadRequest.WithDetail("missing refresh_token")
	}
	if !kind.Valid() {
		return httperrors.ErrBadRequest.WithDetail("invalid kind")
	}
	return s.engines[kind].Revoke(ctx, tenant, refreshToken, session.ReasonLogout)
}
