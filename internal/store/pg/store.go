// Package pg implements the repository contracts on PostgreSQL using
// pgxpool. Multi-step read-then-write operations run inside one
// transaction with row-level locks (SELECT ... FOR UPDATE); duplicate
// insert races are resolved by unique constraints plus re-read, not by
// locks, since the rows do not exist at lock time.
package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

// Config tunes the pool.
type Config struct {
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
}

// Store implements repository.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Connect builds the pool and verifies connectivity.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.MaxIdleConns > 0 {
		poolCfg.MinConns = int32(cfg.MaxIdleConns)
	} else {
		poolCfg.MinConns = 2
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping failed: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool (tests, migrations).
func NewWithPool(pool *pgxpool.Pool) *Store { return &Store{pool: pool} }

// Pool exposes the underlying pool for health checks and metrics.
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// ─── repository.Store ───

func (s *Store) Tenants() repository.TenantRepository { return &tenantRepo{pool: s.pool} }

func (s *Store) AuthRequests() repository.AuthRequestRepository {
	return &authRequestRepo{pool: s.pool}
}

func (s *Store) ExchangeCodes() repository.ExchangeCodeRepository {
	return &exchangeCodeRepo{pool: s.pool}
}

func (s *Store) Credentials(kind repository.OwnerKind) repository.CredentialRepository {
	return &credentialRepo{pool: s.pool, table: credentialTable(kind)}
}

// WithinTx runs fn in one transaction. fn returning an error rolls
// everything back, including any state consumption it performed.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	pgtx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("pg: begin tx: %w", err)
	}
	defer pgtx.Rollback(ctx)

	if err := fn(&storeTx{tx: pgtx}); err != nil {
		return err
	}
	if err := pgtx.Commit(ctx); err != nil {
		return fmt.Errorf("pg: commit tx: %w", err)
	}
	return nil
}

// storeTx adapts a pgx.Tx to repository.Tx.
type storeTx struct {
	tx pgx.Tx
}

func (t *storeTx) Accounts(kind repository.OwnerKind) repository.AccountTxRepository {
	return &accountTxRepo{tx: t.tx, table: accountTable(kind)}
}

func (t *storeTx) Connections() repository.ConnectionTxRepository {
	return &connectionTxRepo{tx: t.tx}
}

func (t *storeTx) AuthRequests() repository.AuthRequestTxRepository {
	return &authRequestTxRepo{tx: t.tx}
}

func (t *storeTx) ExchangeCodes() repository.ExchangeCodeTxRepository {
	return &exchangeCodeTxRepo{tx: t.tx}
}

func (t *storeTx) Credentials(kind repository.OwnerKind) repository.CredentialTxRepository {
	return &credentialTxRepo{tx: t.tx, table: credentialTable(kind)}
}

// ─── helpers ───

func accountTable(kind repository.OwnerKind) string {
	if kind == repository.OwnerMember {
		return "org_member"
	}
	return "app_user"
}

func credentialTable(kind repository.OwnerKind) string {
	if kind == repository.OwnerMember {
		return "member_refresh_token"
	}
	return "user_refresh_token"
}

// isUniqueViolation detects SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
