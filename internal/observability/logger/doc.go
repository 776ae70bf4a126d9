// Package logger wraps zap with a process-wide singleton, context
// propagation and typed field helpers.
//
// Usage:
//
//	logger.Init(logger.Config{Env: "prod", Level: "info"})
//	defer logger.Sync()
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Component("social.callback"))
//	log.Info("callback validated", logger.TenantID(tenantID))
//
// Middlewares inject a request-scoped logger into the context; From(ctx)
// falls back to the singleton when none is present.
package logger
