package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dropDatabas3/janus/internal/http/dto"
	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/http/middlewares"
	svc "github.com/dropDatabas3/janus/internal/http/services/auth"
)

// LogoutController handles POST /v1/auth/logout.
type LogoutController struct {
	service svc.LogoutService
}

// NewLogoutController creates the controller.
func NewLogoutController(service svc.LogoutService) *LogoutController {
	return &LogoutController{service: service}
}

func (c *LogoutController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenant := middlewares.GetTenant(ctx)
	if tenant == nil {
		httperrors.WriteError(w, httperrors.ErrInvalidAPIKey)
		return
	}

	var req dto.LogoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	if err := c.service.Logout(ctx, tenant, ownerKind(req.Kind), strings.TrimSpace(req.RefreshToken)); err != nil {
		httperrors.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
