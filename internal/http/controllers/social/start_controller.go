// Package social holds the controllers for the federated login flows.
package social

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/janus/internal/http/dto"
	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/http/middlewares"
	svc "github.com/dropDatabas3/janus/internal/http/services/social"
	"github.com/dropDatabas3/janus/internal/observability/logger"
)

// StartController handles POST /v1/auth/social/start.
type StartController struct {
	service svc.StartService
}

// NewStartController creates the controller.
func NewStartController(service svc.StartService) *StartController {
	return &StartController{service: service}
}

func (c *StartController) Start(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Start"))

	tenant := middlewares.GetTenant(ctx)
	if tenant == nil {
		httperrors.WriteError(w, httperrors.ErrInvalidAPIKey)
		return
	}

	var req dto.StartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}
	req.Provider = strings.TrimSpace(strings.ToLower(req.Provider))
	if req.Provider == "" {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing provider"))
		return
	}

	authorizeURL, err := c.service.Start(ctx, tenant, req.Provider, strings.TrimSpace(req.ReturnURI))
	if err != nil {
		log.Warn("start failed", logger.Provider(req.Provider), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(dto.StartResponse{AuthorizeURL: authorizeURL})
}

// Authorize is the browser-facing variant: it starts the same handshake
// and answers with a redirect to the provider instead of a JSON body.
func (c *StartController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("StartController.Authorize"))

	tenant := middlewares.GetTenant(ctx)
	if tenant == nil {
		httperrors.WriteError(w, httperrors.ErrInvalidAPIKey)
		return
	}

	provider := strings.TrimSpace(strings.ToLower(chi.URLParam(r, "provider")))
	returnURI := strings.TrimSpace(r.URL.Query().Get("redirect_uri"))

	authorizeURL, err := c.service.Start(ctx, tenant, provider, returnURI)
	if err != nil {
		log.Warn("authorize failed", logger.Provider(provider), logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, authorizeURL, http.StatusFound)
}
