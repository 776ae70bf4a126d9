package pg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

// accountTxRepo serves both aggregates; table selects app_user or
// org_member. The two tables share the same columns.
type accountTxRepo struct {
	tx    pgx.Tx
	table string
}

const accountColumns = `id, tenant_id, email, email_verified, display_name, password_hash, created_at, updated_at`

func (r *accountTxRepo) GetByEmailForUpdate(ctx context.Context, tenantID, email string) (*repository.Account, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM `+r.table+`
		 WHERE tenant_id = $1 AND lower(email) = lower($2)
		 FOR UPDATE`, tenantID, email)
	return scanAccount(row)
}

func (r *accountTxRepo) GetByIDForUpdate(ctx context.Context, id string) (*repository.Account, error) {
	row := r.tx.QueryRow(ctx,
		`SELECT `+accountColumns+` FROM `+r.table+` WHERE id = $1 FOR UPDATE`, id)
	return scanAccount(row)
}

func (r *accountTxRepo) Create(ctx context.Context, input repository.CreateAccountInput) (*repository.Account, error) {
	row := r.tx.QueryRow(ctx,
		`INSERT INTO `+r.table+` (tenant_id, email, email_verified, display_name, password_hash)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+accountColumns,
		input.TenantID, strings.ToLower(input.Email), input.EmailVerified, input.DisplayName, input.PasswordHash)
	acc, err := scanAccount(row)
	if isUniqueViolation(err) {
		return nil, repository.ErrConflict
	}
	return acc, err
}

func (r *accountTxRepo) Update(ctx context.Context, id string, input repository.UpdateAccountInput) error {
	sets := []string{"updated_at = now()"}
	args := []any{id}
	if input.EmailVerified != nil {
		args = append(args, *input.EmailVerified)
		sets = append(sets, fmt.Sprintf("email_verified = $%d", len(args)))
	}
	if input.DisplayName != nil {
		args = append(args, *input.DisplayName)
		sets = append(sets, fmt.Sprintf("display_name = $%d", len(args)))
	}
	tag, err := r.tx.Exec(ctx,
		`UPDATE `+r.table+` SET `+strings.Join(sets, ", ")+` WHERE id = $1`, args...)
	if err != nil {
		return fmt.Errorf("pg: update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*repository.Account, error) {
	var a repository.Account
	err := row.Scan(&a.ID, &a.TenantID, &a.Email, &a.EmailVerified, &a.DisplayName,
		&a.PasswordHash, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: scan account: %w", err)
	}
	return &a, nil
}
