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

// credentialTxRepo serves both aggregates; table selects
// user_refresh_token or member_refresh_token.
type credentialTxRepo struct {
	tx    pgx.Tx
	table string
}

const credentialColumns = `id, tenant_id, account_id, token_hash, issued_at, expires_at, revoked_at, revoke_reason, replaced_by, ip, user_agent`

func (r *credentialTxRepo) GetByHashForUpdate(ctx context.Context, tokenHash string) (*repository.RefreshCredential, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM `+r.table+` WHERE token_hash = $1 FOR UPDATE`, tokenHash)
	return scanCredential(row)
}

func (r *credentialTxRepo) Create(ctx context.Context, input repository.CreateCredentialInput) (*repository.RefreshCredential, error) {
	row := r.tx.QueryRow(ctx,
		`INSERT INTO `+r.table+` (tenant_id, account_id, token_hash, expires_at, ip, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+credentialColumns,
		input.TenantID, input.AccountID, input.TokenHash, input.ExpiresAt, input.Meta.IP, input.Meta.UserAgent)
	cred, err := scanCredential(row)
	if isUniqueViolation(err) {
		return nil, repository.ErrConflict
	}
	return cred, err
}

func (r *credentialTxRepo) ListActiveForUpdate(ctx context.Context, accountID string, now time.Time) ([]repository.RefreshCredential, error) {
	rows, err := r.tx.Query(ctx,
		`SELECT `+credentialColumns+` FROM `+r.table+`
		 WHERE account_id = $1 AND revoked_at IS NULL AND expires_at > $2
		 ORDER BY issued_at ASC
		 FOR UPDATE`, accountID, now)
	if err != nil {
		return nil, fmt.Errorf("pg: list active credentials: %w", err)
	}
	defer rows.Close()

	var out []repository.RefreshCredential
	for rows.Next() {
		var c repository.RefreshCredential
		if err := rows.Scan(&c.ID, &c.TenantID, &c.AccountID, &c.TokenHash, &c.IssuedAt, &c.ExpiresAt,
			&c.RevokedAt, &c.RevokeReason, &c.ReplacedBy, &c.IP, &c.UserAgent); err != nil {
			return nil, fmt.Errorf("pg: scan credential: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *credentialTxRepo) Revoke(ctx context.Context, id, reason string) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE `+r.table+` SET revoked_at = now(), revoke_reason = $2
		 WHERE id = $1 AND revoked_at IS NULL`, id, reason)
	if err != nil {
		return fmt.Errorf("pg: revoke credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrConflict
	}
	return nil
}

func (r *credentialTxRepo) SetReplacedBy(ctx context.Context, id, successorID string) error {
	tag, err := r.tx.Exec(ctx,
		`UPDATE `+r.table+` SET replaced_by = $2 WHERE id = $1`, id, successorID)
	if err != nil {
		return fmt.Errorf("pg: set replaced_by: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// RevokeDescendants walks the replaced_by chain below id and revokes
// every live credential in it. The chain is short in practice (one
// successor per rotation) but the CTE handles arbitrary depth.
func (r *credentialTxRepo) RevokeDescendants(ctx context.Context, id, reason string) (int, error) {
	tag, err := r.tx.Exec(ctx,
		`WITH RECURSIVE chain AS (
		   SELECT replaced_by AS id FROM `+r.table+` WHERE id = $1 AND replaced_by IS NOT NULL
		   UNION
		   SELECT t.replaced_by FROM `+r.table+` t
		   JOIN chain c ON t.id = c.id
		   WHERE t.replaced_by IS NOT NULL
		 )
		 UPDATE `+r.table+` SET revoked_at = now(), revoke_reason = $2
		 WHERE id IN (SELECT id FROM chain) AND revoked_at IS NULL`, id, reason)
	if err != nil {
		return 0, fmt.Errorf("pg: revoke descendants: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

type credentialRepo struct {
	pool  *pgxpool.Pool
	table string
}

func (r *credentialRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.RefreshCredential, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+credentialColumns+` FROM `+r.table+` WHERE token_hash = $1`, tokenHash)
	return scanCredential(row)
}

func (r *credentialRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM `+r.table+` WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("pg: delete expired credentials: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanCredential(row pgx.Row) (*repository.RefreshCredential, error) {
	var c repository.RefreshCredential
	err := row.Scan(&c.ID, &c.TenantID, &c.AccountID, &c.TokenHash, &c.IssuedAt, &c.ExpiresAt,
		&c.RevokedAt, &c.RevokeReason, &c.ReplacedBy, &c.IP, &c.UserAgent)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: scan credential: %w", err)
	}
	return &c, nil
}
