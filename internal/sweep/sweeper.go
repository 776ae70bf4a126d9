// Package sweep removes expired handshake, exchange code and refresh
// credential rows in the background. Expired rows are already invisible
// to the read paths; sweeping only reclaims storage.
package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/observability/metrics"
)

// Sweeper runs periodic cleanup over the expiring tables.
type Sweeper struct {
	store    repository.Store
	interval time.Duration
	now      func() time.Time
}

// New creates a sweeper. A zero interval defaults to 5 minutes.
func New(store repository.Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{store: store, interval: interval, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is
// cancelled. Errors are logged and the loop keeps going.
func (s *Sweeper) Run(ctx context.Context) error {
	log := logger.From(ctx).With(logger.Component("sweep"))
	log.Info("sweeper started", logger.Duration(s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweep(ctx, log)
	for {
		select {
		case <-ctx.Done():
			log.Info("sweeper stopped")
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx, log)
		}
	}
}

// RunOnce performs a single sweep and returns deleted rows per table.
func (s *Sweeper) RunOnce(ctx context.Context) (map[string]int, error) {
	now := s.now().UTC()
	out := make(map[string]int, 4)

	n, err := s.store.AuthRequests().DeleteExpired(ctx, now)
	if err != nil {
		return out, err
	}
	out["auth_request"] = n

	n, err = s.store.ExchangeCodes().DeleteExpired(ctx, now)
	if err != nil {
		return out, err
	}
	out["exchange_code"] = n

	for _, kind := range []repository.OwnerKind{repository.OwnerUser, repository.OwnerMember} {
		n, err = s.store.Credentials(kind).DeleteExpired(ctx, now)
		if err != nil {
			return out, err
		}
		out[string(kind)+"_refresh_token"] = n
	}
	return out, nil
}

func (s *Sweeper) sweep(ctx context.Context, log *zap.Logger) {
	deleted, err := s.RunOnce(ctx)
	if err != nil {
		log.Warn("sweep failed", logger.Err(err))
		return
	}
	total := 0
	for table, n := range deleted {
		metrics.SweepDeletedTotal.WithLabelValues(table).Add(float64(n))
		total += n
	}
	if total > 0 {
		log.Info("sweep completed", logger.Count(total))
	}
}
