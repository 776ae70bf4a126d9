package repository

import "context"

// Tx exposes the transaction-scoped repositories. Everything reached
// through one Tx commits or rolls back together, which is what the
// callback path needs: state consumption, account linking and exchange
// code creation are all-or-nothing.
type Tx interface {
	Accounts(kind OwnerKind) AccountTxRepository
	Connections() ConnectionTxRepository
	AuthRequests() AuthRequestTxRepository
	ExchangeCodes() ExchangeCodeTxRepository
	Credentials(kind OwnerKind) CredentialTxRepository
}

// Store is the persistence entry point.
type Store interface {
	Tenants() TenantRepository
	AuthRequests() AuthRequestRepository
	ExchangeCodes() ExchangeCodeRepository
	Credentials(kind OwnerKind) CredentialRepository

	// WithinTx runs fn inside one database transaction, committing when
	// fn returns nil and rolling back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}
