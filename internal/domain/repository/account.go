package repository

import (
	"context"
	"time"
)

// Account is an end user or an organization member. The two aggregates
// share this shape; OwnerKind selects which table a repository targets.
type Account struct {
	ID            string
	TenantID      string
	Email         string
	EmailVerified bool
	DisplayName   string
	PasswordHash  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateAccountInput carries the fields for a new account row.
type CreateAccountInput struct {
	TenantID      string
	Email         string
	EmailVerified bool
	DisplayName   string
	PasswordHash  string
}

// UpdateAccountInput patches an account. Nil fields are left untouched.
type UpdateAccountInput struct {
	EmailVerified *bool
	DisplayName   *string
}

// AccountTxRepository operates on accounts inside a transaction. The
// ForUpdate variants take a row-level exclusive lock so concurrent
// linking attempts against the same account serialize.
type AccountTxRepository interface {
	// GetByEmailForUpdate locks and returns the account with the given
	// email in the tenant. Returns ErrNotFound if absent.
	GetByEmailForUpdate(ctx context.Context, tenantID, email string) (*Account, error)

	// GetByIDForUpdate locks and returns an account by id.
	GetByIDForUpdate(ctx context.Context, id string) (*Account, error)

	// Create inserts a new account and returns it with its id set.
	Create(ctx context.Context, input CreateAccountInput) (*Account, error)

	// Update applies the non-nil fields of input.
	Update(ctx context.Context, id string, input UpdateAccountInput) error
}
