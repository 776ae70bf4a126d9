package repository

import (
	"context"
	"time"
)

// OwnerKind discriminates the two structurally identical credential
// aggregates: end users and organization members.
type OwnerKind string

const (
	OwnerUser   OwnerKind = "user"
	OwnerMember OwnerKind = "member"
)

// Valid reports whether k names a known aggregate.
func (k OwnerKind) Valid() bool {
	return k == OwnerUser || k == OwnerMember
}

// ClientMeta records where a credential was issued from.
type ClientMeta struct {
	IP        string
	UserAgent string
}

// RefreshCredential is one long-lived refresh token. The raw token is
// never persisted; TokenHash is unique. TenantID pins the credential to
// the tenant it was issued under. ReplacedBy forms the rotation chain:
// rotation revokes the credential and points it at its successor.
type RefreshCredential struct {
	ID           string
	TenantID     string
	AccountID    string
	TokenHash    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	RevokeReason string
	ReplacedBy   *string
	IP           string
	UserAgent    string
}

// Active reports whether the credential is usable for refresh at now.
func (c *RefreshCredential) Active(now time.Time) bool {
	return c.RevokedAt == nil && now.Before(c.ExpiresAt)
}

// Rotated reports whether the credential was revoked by rotation rather
// than by explicit revocation.
func (c *RefreshCredential) Rotated() bool {
	return c.RevokedAt != nil && c.ReplacedBy != nil
}

// CreateCredentialInput carries the fields for a new credential row.
type CreateCredentialInput struct {
	TenantID  string
	AccountID string
	TokenHash string
	ExpiresAt time.Time
	Meta      ClientMeta
}

// CredentialTxRepository operates on one credential aggregate inside a
// transaction. A pg implementation exists per table; the rotation engine
// holds the state machine.
type CredentialTxRepository interface {
	// GetByHashForUpdate locks and returns the credential with the given
	// token hash. Returns ErrNotFound if absent.
	GetByHashForUpdate(ctx context.Context, tokenHash string) (*RefreshCredential, error)

	// Create inserts a new active credential.
	Create(ctx context.Context, input CreateCredentialInput) (*RefreshCredential, error)

	// ListActiveForUpdate locks and returns the account's non-revoked,
	// non-expired credentials ordered oldest-issued first.
	ListActiveForUpdate(ctx context.Context, accountID string, now time.Time) ([]RefreshCredential, error)

	// Revoke marks the credential revoked with a reason. Returns
	// ErrConflict if it is already revoked.
	Revoke(ctx context.Context, id, reason string) error

	// SetReplacedBy points a credential at its rotation successor.
	SetReplacedBy(ctx context.Context, id, successorID string) error

	// RevokeDescendants revokes every not-yet-revoked credential in the
	// rotation chain below id. Returns the number revoked.
	RevokeDescendants(ctx context.Context, id, reason string) (int, error)
}

// CredentialRepository is the non-transactional surface of one aggregate.
type CredentialRepository interface {
	// GetByHash returns the credential with the given token hash.
	GetByHash(ctx context.Context, tokenHash string) (*RefreshCredential, error)

	// DeleteExpired removes credentials past their expiry.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
