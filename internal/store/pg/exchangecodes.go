package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

type exchangeCodeTxRepo struct {
	tx pgx.Tx
}

const exchangeCodeColumns = `id, tenant_id, account_id, provider, code_hash, expires_at, consumed_at, created_at`

func (r *exchangeCodeTxRepo) Insert(ctx context.Context, code repository.ExchangeCode) error {
	_, err := r.tx.Exec(ctx,
		`INSERT INTO exchange_code (tenant_id, account_id, provider, code_hash, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		code.TenantID, code.AccountID, code.Provider, code.CodeHash, code.ExpiresAt)
	if err != nil {
		return fmt.Errorf("pg: insert exchange code: %w", err)
	}
	return nil
}

// ConsumeByHash locks the row so two concurrent redemptions serialize;
// the loser sees consumed_at set and gets ErrNotFound.
func (r *exchangeCodeTxRepo) ConsumeByHash(ctx context.Context, codeHash string, now time.Time) (*repository.ExchangeCode, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+exchangeCodeColumns+` FROM exchange_code WHERE code_hash = $1 FOR UPDATE`, codeHash)
	code, err := scanExchangeCode(row)
	if err != nil {
		return nil, err
	}
	if code.ConsumedAt != nil {
		return nil, repository.ErrNotFound
	}
	if !now.Before(code.ExpiresAt) {
		return nil, repository.ErrExpired
	}
	if _, err := r.tx.Exec(ctx,
		`UPDATE exchange_code SET consumed_at = $2 WHERE id = $1`, code.ID, now); err != nil {
		return nil, fmt.Errorf("pg: consume exchange code: %w", err)
	}
	code.ConsumedAt = &now
	return code, nil
}

type exchangeCodeRepo struct {
	pool *pgxpool.Pool
}

func (r *exchangeCodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM exchange_code WHERE expires_at <= $1 OR consumed_at IS NOT NULL`, now)
	if err != nil {
		return 0, fmt.Errorf("pg: delete expired exchange codes: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanExchangeCode(row pgx.Row) (*repository.ExchangeCode, error) {
	var c repository.ExchangeCode
	err := row.Scan(&c.ID, &c.TenantID, &c.AccountID, &c.Provider, &c.CodeHash,
		&c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: scan exchange code: %w", err)
	}
	return &c, nil
}
