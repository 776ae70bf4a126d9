package pg

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

type connectionTxRepo struct {
	tx pgx.Tx
}

const connectionColumns = `id, tenant_id, provider, subject_id, account_id, email, created_at, updated_at`

func (r *connectionTxRepo) GetBySubject(ctx context.Context, tenantID, provider, subjectID string) (*repository.ProviderConnection, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+connectionColumns+` FROM provider_connection
		 WHERE tenant_id = $1 AND provider = $2 AND subject_id = $3`,
		tenantID, provider, subjectID)
	return scanConnection(row)
}

// Insert relies on ON CONFLICT DO NOTHING instead of letting the unique
// constraint abort the transaction: a raw 23505 would poison the tx and
// forbid the loser's re-read.
func (r *connectionTxRepo) Insert(ctx context.Context, conn repository.ProviderConnection) (*repository.ProviderConnection, error) {
	row := r.tx.QueryRow(ctx,
		`INSERT INTO provider_connection (tenant_id, provider, subject_id, account_id, email)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id, provider, subject_id) DO NOTHING
		 RETURNING `+connectionColumns,
		conn.TenantID, conn.Provider, conn.SubjectID, conn.AccountID, conn.Email)
	created, err := scanConnection(row)
	if errors.Is(err, repository.ErrNotFound) {
		// DO NOTHING returns no row: a concurrent callback won.
		return nil, repository.ErrConflict
	}
	return created, err
}

func (r *connectionTxRepo) UpdateEmail(ctx context.Context, id, email string) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE provider_connection SET email = $2, updated_at = now() WHERE id = $1`, id, email)
	if err != nil {
		return fmt.Errorf("pg: update connection email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanConnection(row pgx.Row) (*repository.ProviderConnection, error) {
	var c repository.ProviderConnection
	err := row.Scan(&c.ID, &c.TenantID, &c.Provider, &c.SubjectID, &c.AccountID,
		&c.Email, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: scan connection: %w", err)
	}
	return &c, nil
}
