// Package alert notifies operators about security events, currently
// refresh token replay. Delivery failures never fail the request that
// detected the event; sinks log and move on.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/dropDatabas3/janus/internal/observability/logger"
)

// Event is one security alert.
type Event struct {
	Kind       string // "refresh_replay"
	TenantID   string
	AccountID  string
	OwnerKind  string
	Detail     string
	IP         string
	UserAgent  string
	OccurredAt time.Time
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
}

// LogNotifier writes alerts to the structured log. Always configured;
// the SMTP sink is layered on top when mail is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, ev Event) {
	logger.From(ctx).Warn("security alert",
		logger.Component("alert"),
		logger.String("kind", ev.Kind),
		logger.TenantID(ev.TenantID),
		logger.AccountID(ev.AccountID),
		logger.String("owner_kind", ev.OwnerKind),
		logger.String("detail", ev.Detail),
		logger.ClientIP(ev.IP),
	)
}

// Fanout delivers to every sink.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, ev Event) {
	for _, n := range f {
		n.Notify(ctx, ev)
	}
}

func subjectFor(ev Event) string {
	return fmt.Sprintf("[janus] %s tenant=%s account=%s", ev.Kind, ev.TenantID, ev.AccountID)
}

func bodyFor(ev Event) string {
	return fmt.Sprintf(
		"Security event: %s\n\nTenant:   %s\nAccount:  %s (%s)\nDetail:   %s\nIP:       %s\nAgent:    %s\nAt:       %s\n",
		ev.Kind, ev.TenantID, ev.AccountID, ev.OwnerKind, ev.Detail, ev.IP, ev.UserAgent,
		ev.OccurredAt.UTC().Format(time.RFC3339),
	)
}
