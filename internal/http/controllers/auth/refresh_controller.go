// Package auth holds the controllers for session maintenance.
package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/http/dto"
	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/http/middlewares"
	svc "github.com/dropDatabas3/janus/internal/http/services/auth"
	socialsvc "github.com/dropDatabas3/janus/internal/http/services/social"
	"github.com/dropDatabas3/janus/internal/observability/logger"
)

// RefreshController handles POST /v1/auth/refresh.
type RefreshController struct {
	service svc.RefreshService
}

// NewRefreshController creates the controller.
func NewRefreshController(service svc.RefreshService) *RefreshController {
	return &RefreshController{service: service}
}

func (c *RefreshController) Refresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("RefreshController.Refresh"))

	tenant := middlewares.GetTenant(ctx)
	if tenant == nil {
		httperrors.WriteError(w, httperrors.ErrInvalidAPIKey)
		return
	}

	var req dto.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	pair, err := c.service.Refresh(ctx, tenant, ownerKind(req.Kind), strings.TrimSpace(req.RefreshToken), repository.ClientMeta{
		IP:        middlewares.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		log.Warn("refresh failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	writeTokenPair(w, pair)
}

// ownerKind parses the aggregate selector, defaulting to end users.
func ownerKind(kind string) repository.OwnerKind {
	if kind == "" {
		return repository.OwnerUser
	}
	return repository.OwnerKind(kind)
}

func writeTokenPair(w http.ResponseWriter, pair *socialsvc.TokenPair) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		AccountID:    pair.AccountID,
	})
}
