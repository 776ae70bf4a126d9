package middlewares

import (
	"context"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

type ctxKey int

const (
	tenantKey ctxKey = iota
	requestIDKey
)

// WithTenant stores the authenticated tenant in the context.
func WithTenant(ctx context.Context, t *repository.Tenant) context.Context {
	return context.WithValue(ctx, tenantKey, t)
}

// GetTenant returns the authenticated tenant, or nil.
func GetTenant(ctx context.Context) *repository.Tenant {
	t, _ := ctx.Value(tenantKey).(*repository.Tenant)
	return t
}

// WithRequestID stores the request id in the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetRequestID returns the request id, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
