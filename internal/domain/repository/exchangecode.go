package repository

import (
	"context"
	"time"
)

// ExchangeCode is a completed handshake awaiting app-side pickup. The raw
// code only ever travels in the redirect URL; the row keeps its hash.
type ExchangeCode struct {
	ID         string
	TenantID   string
	AccountID  string
	Provider   string
	CodeHash   string
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// ExchangeCodeTxRepository operates on exchange codes inside a transaction.
type ExchangeCodeTxRepository interface {
	// Insert persists a freshly minted code.
	Insert(ctx context.Context, code ExchangeCode) error

	// ConsumeByHash redeems a code exactly once: it locks the row, fails
	// with ErrNotFound when absent or already consumed and with
	// ErrExpired when past expiry, and otherwise marks it consumed and
	// returns it.
	ConsumeByHash(ctx context.Context, codeHash string, now time.Time) (*ExchangeCode, error)
}

// ExchangeCodeRepository is the non-transactional surface (sweeps).
type ExchangeCodeRepository interface {
	// DeleteExpired removes expired and consumed rows.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
