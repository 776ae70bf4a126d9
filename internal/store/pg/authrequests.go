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

type authRequestRepo struct {
	pool *pgxpool.Pool
}

const authRequestColumns = `id, tenant_id, provider, state_hash, verifier_enc, redirect_uri, expires_at, created_at`

func (r *authRequestRepo) Create(ctx context.Context, req repository.AuthRequest) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO auth_request (tenant_id, provider, state_hash, verifier_enc, redirect_uri, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.TenantID, req.Provider, req.StateHash, req.VerifierEnc, req.RedirectURI, req.ExpiresAt)
	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("pg: create auth request: %w", err)
	}
	return nil
}

// Get takes a short-lived row lock inside its own transaction so two
// callbacks for the same state serialize on validation. The lock is
// released on return; actual consumption happens later, inside the
// linking transaction.
func (r *authRequestRepo) Get(ctx context.Context, stateHash string, now time.Time) (*repository.AuthRequest, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("pg: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+authRequestColumns+` FROM auth_request WHERE state_hash = $1 FOR UPDATE`, stateHash)
	req, err := scanAuthRequest(row)
	if err != nil {
		return nil, err
	}
	if !now.Before(req.ExpiresAt) {
		if _, err := tx.Exec(ctx, `DELETE FROM auth_request WHERE id = $1`, req.ID); err != nil {
			return nil, fmt.Errorf("pg: delete expired auth request: %w", err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("pg: commit: %w", err)
		}
		return nil, repository.ErrExpired
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("pg: commit: %w", err)
	}
	return req, nil
}

func (r *authRequestRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM auth_request WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("pg: delete expired auth requests: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

type authRequestTxRepo struct {
	tx pgx.Tx
}

func (r *authRequestTxRepo) DeleteByStateHash(ctx context.Context, stateHash string) (bool, error) {
	tag, err := r.tx.Exec(ctx, `DELETE FROM auth_request WHERE state_hash = $1`, stateHash)
	if err != nil {
		return false, fmt.Errorf("pg: consume auth request: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanAuthRequest(row pgx.Row) (*repository.AuthRequest, error) {
	var req repository.AuthRequest
	err := row.Scan(&req.ID, &req.TenantID, &req.Provider, &req.StateHash,
		&req.VerifierEnc, &req.RedirectURI, &req.ExpiresAt, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: scan auth request: %w", err)
	}
	return &req, nil
}
