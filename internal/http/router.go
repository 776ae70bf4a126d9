package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	authctrl "github.com/dropDatabas3/janus/internal/http/controllers/auth"
	healthctrl "github.com/dropDatabas3/janus/internal/http/controllers/health"
	socialctrl "github.com/dropDatabas3/janus/internal/http/controllers/social"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/http/middlewares"
)

// RouterDeps carries everything the route table needs.
type RouterDeps struct {
	Tenants repository.TenantRepository

	Start     *socialctrl.StartController
	Callback  *socialctrl.CallbackController
	Exchange  *socialctrl.ExchangeController
	Providers *socialctrl.ProvidersController
	Refresh   *authctrl.RefreshController
	Logout    *authctrl.LogoutController
	Health    *healthctrl.Controller

	// MetricsHandler serves /metrics; nil disables the endpoint.
	MetricsHandler http.Handler
}

// NewRouter assembles the route table. The callback is public (providers
// redirect the browser there); everything else under /v1 requires a
// tenant API key.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	r.Get("/healthz", deps.Health.Healthz)
	r.Get("/readyz", deps.Health.Readyz)
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// Apple posts the callback (response_mode=form_post); the rest GET it.
	r.Get("/v1/auth/oauth/{provider}/callback", deps.Callback.Callback)
	r.Post("/v1/auth/oauth/{provider}/callback", deps.Callback.Callback)

	r.Group(func(r chi.Router) {
		r.Use(middlewares.TenantAuth(deps.Tenants))
		r.Get("/v1/auth/oauth/{provider}/authorize", deps.Start.Authorize)
		r.Post("/v1/auth/social/start", deps.Start.Start)
		r.Post("/v1/auth/social/exchange", deps.Exchange.Exchange)
		r.Get("/v1/auth/providers", deps.Providers.List)
		r.Post("/v1/auth/refresh", deps.Refresh.Refresh)
		r.Post("/v1/auth/logout", deps.Logout.Logout)
	})

	return middlewares.Chain(r,
		middlewares.RequestID(),
		middlewares.Logging(),
		InstrumentHandler,
		middlewares.Recover(),
	)
}
