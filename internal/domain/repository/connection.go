package repository

import (
	"context"
	"time"
)

// ProviderConnection is the durable link between one external identity
// and one local account. The triple (tenant, provider, subject) is unique,
// enforced by a backing constraint because two callbacks for the same
// external identity can race.
type ProviderConnection struct {
	ID        string
	TenantID  string
	Provider  string
	SubjectID string // provider-assigned subject ("sub")
	AccountID string
	Email     string // last email asserted by the provider
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ConnectionTxRepository operates on provider connections inside a
// transaction.
type ConnectionTxRepository interface {
	// GetBySubject returns the connection for (tenant, provider, subject).
	// Returns ErrNotFound if absent.
	GetBySubject(ctx context.Context, tenantID, provider, subjectID string) (*ProviderConnection, error)

	// Insert creates the connection. Returns ErrConflict when the unique
	// triple already exists (a concurrent callback won the race); the
	// transaction stays usable so the caller can re-read.
	Insert(ctx context.Context, conn ProviderConnection) (*ProviderConnection, error)

	// UpdateEmail refreshes the cached email on the connection.
	UpdateEmail(ctx context.Context, id, email string) error
}
