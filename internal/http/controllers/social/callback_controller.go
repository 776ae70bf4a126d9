package social

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	svc "github.com/dropDatabas3/janus/internal/http/services/social"
	"github.com/dropDatabas3/janus/internal/observability/logger"
)

// CallbackController handles the provider redirect. GET covers the
// standard flow; POST covers Apple's form_post response mode. The
// request is unauthenticated: the state token is the credential.
type CallbackController struct {
	service svc.CallbackService
}

// NewCallbackController creates the controller.
func NewCallbackController(service svc.CallbackService) *CallbackController {
	return &CallbackController{service: service}
}

func (c *CallbackController) Callback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	provider := strings.TrimSpace(strings.ToLower(chi.URLParam(r, "provider")))
	log := logger.From(ctx).With(
		logger.Layer("controller"),
		logger.Op("CallbackController.Callback"),
		logger.Provider(provider),
	)

	var state, code, provErr, provErrDesc string
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		state, code = q.Get("state"), q.Get("code")
		provErr, provErrDesc = q.Get("error"), q.Get("error_description")
	case http.MethodPost:
		if err := r.ParseForm(); err != nil {
			httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("malformed form body"))
			return
		}
		state, code = r.PostForm.Get("state"), r.PostForm.Get("code")
		provErr, provErrDesc = r.PostForm.Get("error"), r.PostForm.Get("error_description")
	default:
		w.Header().Set("Allow", "GET, POST")
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
		return
	}

	if provErr != "" {
		// The user denied consent or the provider refused. Detail stays
		// in the log; the client gets a stable code.
		log.Warn("provider returned error",
			logger.String("provider_error", provErr),
			logger.String("provider_error_description", provErrDesc),
		)
		httperrors.WriteError(w, httperrors.ErrProviderUnavailable.WithDetail("authorization was not granted"))
		return
	}

	redirect, err := c.service.Callback(ctx, provider, strings.TrimSpace(state), strings.TrimSpace(code))
	if err != nil {
		log.Warn("callback failed", logger.Err(err))
		httperrors.WriteError(w, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, redirect, http.StatusFound)
}
