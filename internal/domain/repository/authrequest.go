package repository

import (
	"context"
	"time"
)

// AuthRequest is one in-flight OAuth handshake. Only the hash of the
// state is stored; the PKCE verifier is stored encrypted and decrypted
// at exchange time.
type AuthRequest struct {
	ID          string
	TenantID    string
	Provider    string
	StateHash   string
	VerifierEnc string
	RedirectURI string // the application's redirect, used after completion
	ExpiresAt   time.Time
	CreatedAt   time.Time
}

// AuthRequestRepository handles the handshake store outside transactions.
type AuthRequestRepository interface {
	// Create persists a new handshake. At most one live row per state
	// hash; ErrConflict on the (astronomically unlikely) hash collision.
	Create(ctx context.Context, req AuthRequest) error

	// Get looks up a handshake by state hash under an exclusive row lock,
	// releasing the lock on return. An expired row is deleted and
	// reported as ErrExpired; a missing row as ErrNotFound.
	Get(ctx context.Context, stateHash string, now time.Time) (*AuthRequest, error)

	// DeleteExpired removes rows past their expiry. Safe under live
	// traffic: live handshakes are never touched.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}

// AuthRequestTxRepository consumes handshakes inside the linking
// transaction, so consumption commits or rolls back with the link.
type AuthRequestTxRepository interface {
	// DeleteByStateHash consumes the handshake. Returns false when the
	// row was already consumed by a concurrent callback.
	DeleteByStateHash(ctx context.Context, stateHash string) (bool, error)
}
