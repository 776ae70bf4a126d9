package social

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/http/dto"
	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/http/middlewares"
	svc "github.com/dropDatabas3/janus/internal/http/services/social"
	"github.com/dropDatabas3/janus/internal/observability/logger"
)

// ExchangeController handles POST /v1/auth/social/exchange.
type ExchangeController struct {
	service svc.ExchangeService
}

// NewExchangeController creates the controller.
func NewExchangeController(service svc.ExchangeService) *ExchangeController {
	return &ExchangeController{service: service}
}

func (c *ExchangeController) Exchange(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("ExchangeController.Exchange"))

	tenant := middlewares.GetTenant(ctx)
	if tenant == nil {
		httperrors.WriteError(w, httperrors.ErrInvalidAPIKey)
		return
	}

	var req dto.ExchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.WriteError(w, httperrors.ErrInvalidJSON)
		return
	}

	pair, err := c.service.Exchange(ctx, tenant, strings.TrimSpace(req.Code), repository.ClientMeta{
		IP:        middlewares.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		log.Warn("exchange failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	writeTokenPair(w, pair)
}

func writeTokenPair(w http.ResponseWriter, pair *svc.TokenPair) {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(dto.TokenPairResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    pair.ExpiresIn,
		AccountID:    pair.AccountID,
		Provider:     pair.Provider,
	})
}
