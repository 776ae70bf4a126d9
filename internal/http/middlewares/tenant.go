package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	tokens "github.com/dropDatabas3/janus/internal/security/token"
)

const apiKeyHeader = "X-API-Key"

// TenantAuth authenticates the calling application by its API key and
// injects the resolved tenant into the context. Only the key's hash is
// compared; raw keys are never stored.
func TenantAuth(tenants repository.TenantRepository) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := strings.TrimSpace(r.Header.Get(apiKeyHeader))
			if key == "" {
				httperrors.WriteError(w, httperrors.ErrInvalidAPIKey)
				return
			}
			tenant, err := tenants.GetByAPIKeyHash(r.Context(), tokens.SHA256Hex(key))
			if repository.IsNotFound(err) {
				httperrors.WriteError(w, httperrors.ErrInvalidAPIKey)
				return
			}
			if err != nil {
				logger.From(r.Context()).Error("tenant lookup failed", logger.Err(err))
				httperrors.WriteError(w, httperrors.ErrServiceUnavailable)
				return
			}

			ctx := WithTenant(r.Context(), tenant)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.TenantID(tenant.ID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
