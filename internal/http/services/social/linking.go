package social

import (
	"context"
	"fmt"

	httperrors "github.com/dropDatabas3/janus/internal/http/errors"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/providers"
	"github.com/dropDatabas3/janus/internal/security/password"
)

// linkIdentity resolves the external identity to a local account,
// creating the account and the provider connection as needed. It is
// idempotent: repeated callbacks for the same (tenant, provider,
// subject) always land on the same account, including under races.
func linkIdentity(ctx context.Context, tx repository.Tx, tenant *repository.Tenant, provider string, identity *providers.ExternalIdentity) (*repository.Account, error) {
	users := tx.Accounts(repository.OwnerUser)
	conns := tx.Connections()

	// Fast path: connection already exists.
	conn, err := conns.GetBySubject(ctx, tenant.ID, provider, identity.SubjectID)
	if err == nil {
		return accountForConnection(ctx, users, conns, conn, identity)
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	account, err := resolveAccountByEmail(ctx, users, tenant, identity)
	if err != nil {
		return nil, err
	}

	_, err = conns.Insert(ctx, repository.ProviderConnection{
		TenantID:  tenant.ID,
		Provider:  provider,
		SubjectID: identity.SubjectID,
		AccountID: account.ID,
		Email:     identity.Email,
	})
	if repository.IsConflict(err) {
		// A concurrent callback for the same external identity won the
		// insert race. One re-read settles it; the unique constraint
		// guarantees the row exists now.
		logger.From(ctx).Info("connection insert lost race, re-reading",
			logger.Component("social.linking"),
			logger.TenantID(tenant.ID),
			logger.Provider(provider),
		)
		conn, err := conns.GetBySubject(ctx, tenant.ID, provider, identity.SubjectID)
		if err != nil {
			return nil, fmt.Errorf("social: re-read connection after conflict: %w", err)
		}
		return accountForConnection(ctx, users, conns, conn, identity)
	}
	if err != nil {
		return nil, err
	}
	return account, nil
}

// accountForConnection loads the linked account, refreshes the cached
// provider email when it changed upstream and folds newer identity
// claims into the account.
func accountForConnection(ctx context.Context, users repository.AccountTxRepository, conns repository.ConnectionTxRepository, conn *repository.ProviderConnection, identity *providers.ExternalIdentity) (*repository.Account, error) {
	if identity.Email != "" && identity.Email != conn.Email {
		if err := conns.UpdateEmail(ctx, conn.ID, identity.Email); err != nil {
			return nil, err
		}
	}
	account, err := users.GetByIDForUpdate(ctx, conn.AccountID)
	if err != nil {
		return nil, fmt.Errorf("social: load linked account: %w", err)
	}
	if err := mergeIdentity(ctx, users, account, identity); err != nil {
		return nil, err
	}
	return account, nil
}

// mergeIdentity promotes the account from a fresher provider assertion:
// a verified external email marks the account verified, and an empty
// display name is backfilled. Nothing else on the account changes.
func mergeIdentity(ctx context.Context, users repository.AccountTxRepository, account *repository.Account, identity *providers.ExternalIdentity) error {
	var input repository.UpdateAccountInput
	if identity.EmailVerified && !account.EmailVerified {
		verified := true
		input.EmailVerified = &verified
	}
	if account.DisplayName == "" && identity.DisplayName != "" {
		name := identity.DisplayName
		input.DisplayName = &name
	}
	if input.EmailVerified == nil && input.DisplayName == nil {
		return nil
	}
	if err := users.Update(ctx, account.ID, input); err != nil {
		return fmt.Errorf("social: merge identity claims: %w", err)
	}
	if input.EmailVerified != nil {
		account.EmailVerified = true
	}
	if input.DisplayName != nil {
		account.DisplayName = *input.DisplayName
	}
	return nil
}

// resolveAccountByEmail finds or creates the local account for a first
// time link. A provider-verified email proves ownership and claims the
// existing account, verified locally or not; an unverified provider
// email attaching to an existing account is refused, since a provider
// account created around a victim's address could capture theirs.
func resolveAccountByEmail(ctx context.Context, users repository.AccountTxRepository, tenant *repository.Tenant, identity *providers.ExternalIdentity) (*repository.Account, error) {
	account, err := users.GetByEmailForUpdate(ctx, tenant.ID, identity.Email)
	if err == nil {
		if !identity.EmailVerified {
			return nil, httperrors.ErrEmailOwnershipUnverified.WithDetail("provider did not verify the email")
		}
		if err := mergeIdentity(ctx, users, account, identity); err != nil {
			return nil, err
		}
		return account, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	placeholder, err := password.UnusablePlaceholder()
	if err != nil {
		return nil, err
	}
	created, err := users.Create(ctx, repository.CreateAccountInput{
		TenantID:      tenant.ID,
		Email:         identity.Email,
		EmailVerified: identity.EmailVerified,
		DisplayName:   identity.DisplayName,
		PasswordHash:  placeholder,
	})
	if repository.IsConflict(err) {
		// Lost a same-email race against another provider's callback.
		account, err := users.GetByEmailForUpdate(ctx, tenant.ID, identity.Email)
		if err != nil {
			return nil, fmt.Errorf("social: re-read account after conflict: %w", err)
		}
		if !identity.EmailVerified {
			return nil, httperrors.ErrEmailOwnershipUnverified
		}
		if err := mergeIdentity(ctx, users, account, identity); err != nil {
			return nil, err
		}
		return account, nil
	}
	if err != nil {
		return nil, err
	}
	return created, nil
}
