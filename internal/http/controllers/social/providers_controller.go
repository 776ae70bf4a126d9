package social

import (
	"encoding/json"
	"net/http"

	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/http/middlewares"
	svc "github.com/dropDatabas3/janus/internal/http/services/social"
)

// ProvidersController handles GET /v1/auth/providers.
type ProvidersController struct {
	service svc.ProvidersService
}

// NewProvidersController creates the controller.
func NewProvidersController(service svc.ProvidersService) *ProvidersController {
	return &ProvidersController{service: service}
}

func (c *ProvidersController) List(w http.ResponseWriter, r *http.Request) {
	tenant := middlewares.GetTenant(r.Context())
	if tenant == nil {
		httperrors.WriteError(w, httperrors.ErrInvalidAPIKey)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"providers": c.service.List(r.Context(), tenant),
	})
}
