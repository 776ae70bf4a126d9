// Package session manages refresh credentials: issuance under the
// tenant's session ceiling, single-use rotation, replay detection and
// revocation. One engine instance serves one owner aggregate; the
// service runs two, one for end users and one for organization members.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dropDatabas3/janus/internal/alert"
	"github.com/dropDatabas3/janus/internal/domain/repository"
	"github.com/dropDatabas3/janus/internal/observability/logger"
	"github.com/dropDatabas3/janus/internal/observability/metrics"
	tokens "github.com/dropDatabas3/janus/internal/security/token"
)

const (
	refreshTokenBytes = 32

	// revocation reasons recorded on the row
	ReasonRotated        = "rotated"
	ReasonReplay         = "replay"
	ReasonSessionCeiling = "session_ceiling"
	ReasonLogout         = "logout"
)

var (
	// ErrInvalidCredential covers unknown, expired and explicitly revoked
	// refresh tokens. Callers answer 401 without distinguishing.
	ErrInvalidCredential = errors.New("session: invalid refresh credential")

	// ErrReplay indicates a rotated credential was presented again.
	ErrReplay = errors.New("session: refresh credential replay")
)

// Config tunes the engine.
type Config struct {
	// RefreshTTL is the credential lifetime. Defaults to 30 days.
	RefreshTTL time.Duration

	// DefaultSessionCeiling caps active credentials per account when the
	// tenant does not set its own. Defaults to 5.
	DefaultSessionCeiling int

	// RevokeChainOnReplay revokes every descendant of a replayed
	// credential. The config layer defaults this to true.
	RevokeChainOnReplay bool
}

// Engine implements the rotation state machine for one owner aggregate.
type Engine struct {
	store    repository.Store
	kind     repository.OwnerKind
	cfg      Config
	notifier alert.Notifier
	now      func() time.Time
}

// New creates an engine. A nil notifier falls back to the log sink.
func New(store repository.Store, kind repository.OwnerKind, cfg Config, notifier alert.Notifier) *Engine {
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}
	if cfg.DefaultSessionCeiling <= 0 {
		cfg.DefaultSessionCeiling = 5
	}
	if notifier == nil {
		notifier = alert.LogNotifier{}
	}
	return &Engine{store: store, kind: kind, cfg: cfg, notifier: notifier, now: time.Now}
}

// Issued is a freshly created credential together with its raw token.
type Issued struct {
	Token      string // raw opaque token, returned once and never stored
	Credential *repository.RefreshCredential
}

// Issue creates a new refresh credential for the account, revoking the
// least recently issued active credentials when the tenant's session
// ceiling is reached.
func (e *Engine) Issue(ctx context.Context, tenant *repository.Tenant, accountID string, meta repository.ClientMeta) (*Issued, error) {
	raw, err := tokens.GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("session: generate token: %w", err)
	}
	now := e.now().UTC()

	var issued *Issued
	err = e.store.WithinTx(ctx, func(tx repository.Tx) error {
		issued, err = e.issueInTx(ctx, tx, tenant, accountID, raw, now, meta)
		return err
	})
	if err != nil {
		return nil, err
	}
	return issued, nil
}

// IssueInTx issues a credential inside an existing transaction, so the
// caller can make issuance atomic with its own writes (exchange code
// consumption).
func (e *Engine) IssueInTx(ctx context.Context, tx repository.Tx, tenant *repository.Tenant, accountID string, meta repository.ClientMeta) (*Issued, error) {
	raw, err := tokens.GenerateOpaqueToken(refreshTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("session: generate token: %w", err)
	}
	return e.issueInTx(ctx, tx, tenant, accountID, raw, e.now().UTC(), meta)
}

func (e *Engine) issueInTx(ctx context.Context, tx repository.Tx, tenant *repository.Tenant, accountID, raw string, now time.Time, meta repository.ClientMeta) (*Issued, error) {
	creds := tx.Credentials(e.kind)
	if err := e.enforceCeiling(ctx, creds, tenant, accountID, now); err != nil {
		return nil, err
	}
	tenantID := ""
	if tenant != nil {
		tenantID = tenant.ID
	}
	cred, err := creds.Create(ctx, repository.CreateCredentialInput{
		TenantID:  tenantID,
		AccountID: accountID,
		TokenHash: tokens.SHA256Hex(raw),
		ExpiresAt: now.Add(e.cfg.RefreshTTL),
		Meta:      meta,
	})
	if err != nil {
		return nil, err
	}
	return &Issued{Token: raw, Credential: cred}, nil
}

// enforceCeiling revokes oldest-issued active credentials until one slot
// is free. ListActiveForUpdate locks the rows, so two concurrent logins
// for the same account serialize here.
func (e *Engine) enforceCeiling(ctx context.Context, creds repository.CredentialTxRepository, tenant *repository.Tenant, accountID string, now time.Time) error {
	ceiling := e.cfg.DefaultSessionCeiling
	if tenant != nil && tenant.SessionCeiling > 0 {
		ceiling = tenant.SessionCeiling
	}
	active, err := creds.ListActiveForUpdate(ctx, accountID, now)
	if err != nil {
		return err
	}
	for i := 0; len(active)-i >= ceiling; i++ {
		if err := creds.Revoke(ctx, active[i].ID, ReasonSessionCeiling); err != nil {
			return err
		}
		logger.From(ctx).Info("session ceiling reached, revoked oldest credential",
			logger.Component("session"),
			logger.AccountID(accountID),
			logger.String("credential_id", active[i].ID),
		)
	}
	return nil
}

// Rotate redeems a refresh token: the presented credential is revoked
// and a successor issued atomically. Presenting an already rotated
// credential is treated as theft evidence: the descendants are revoked
// (configurable) and an alert is raised.
func (e *Engine) Rotate(ctx context.Context, tenant *repository.Tenant, rawToken string, meta repository.ClientMeta) (*Issued, error) {
	tokenHash := tokens.SHA256Hex(rawToken)
	now := e.now().UTC()

	var (
		issued  *Issued
		replay  *repository.RefreshCredential
		revoked int
	)
	err := e.store.WithinTx(ctx, func(tx repository.Tx) error {
		creds := tx.Credentials(e.kind)
		cred, err := creds.GetByHashForUpdate(ctx, tokenHash)
		if repository.IsNotFound(err) {
			return ErrInvalidCredential
		}
		if err != nil {
			return err
		}
		// A credential presented under another tenant's API key is plain
		// invalid. Checked before the replay branch so cross-tenant
		// probing cannot revoke chains or raise alerts.
		if tenant == nil || cred.TenantID != tenant.ID {
			return ErrInvalidCredential
		}

		if cred.RevokedAt != nil {
			if !cred.Rotated() {
				return ErrInvalidCredential
			}
			replay = cred
			if e.cfg.RevokeChainOnReplay {
				n, err := creds.RevokeDescendants(ctx, cred.ID, ReasonReplay)
				if err != nil {
					return err
				}
				revoked = n
			}
			return nil
		}
		if !now.Before(cred.ExpiresAt) {
			return ErrInvalidCredential
		}

		raw, err := tokens.GenerateOpaqueToken(refreshTokenBytes)
		if err != nil {
			return fmt.Errorf("session: generate token: %w", err)
		}
		successor, err := creds.Create(ctx, repository.CreateCredentialInput{
			TenantID:  cred.TenantID,
			AccountID: cred.AccountID,
			TokenHash: tokens.SHA256Hex(raw),
			ExpiresAt: now.Add(e.cfg.RefreshTTL),
			Meta:      meta,
		})
		if err != nil {
			return err
		}
		if err := creds.Revoke(ctx, cred.ID, ReasonRotated); err != nil {
			return err
		}
		if err := creds.SetReplacedBy(ctx, cred.ID, successor.ID); err != nil {
			return err
		}
		issued = &Issued{Token: raw, Credential: successor}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			metrics.RotationsTotal.WithLabelValues(string(e.kind), "invalid").Inc()
		}
		return nil, err
	}

	if replay != nil {
		metrics.RotationsTotal.WithLabelValues(string(e.kind), "replay").Inc()
		metrics.ReplaysDetectedTotal.WithLabelValues(string(e.kind)).Inc()
		tenantID := ""
		if tenant != nil {
			tenantID = tenant.ID
		}
		e.notifier.Notify(ctx, alert.Event{
			Kind:       "refresh_replay",
			TenantID:   tenantID,
			AccountID:  replay.AccountID,
			OwnerKind:  string(e.kind),
			Detail:     fmt.Sprintf("rotated credential %s presented again, %d descendants revoked", replay.ID, revoked),
			IP:         meta.IP,
			UserAgent:  meta.UserAgent,
			OccurredAt: now,
		})
		return nil, ErrReplay
	}
	metrics.RotationsTotal.WithLabelValues(string(e.kind), "ok").Inc()
	return issued, nil
}

// Revoke invalidates a refresh token (logout). Unknown, already revoked
// and other-tenant tokens succeed without effect: logout is idempotent
// and does not confirm whether a token exists elsewhere.
func (e *Engine) Revoke(ctx context.Context, tenant *repository.Tenant, rawToken, reason string) error {
	tokenHash := tokens.SHA256Hex(rawToken)
	return e.store.WithinTx(ctx, func(tx repository.Tx) error {
		creds := tx.Credentials(e.kind)
		cred, err := creds.GetByHashForUpdate(ctx, tokenHash)
		if repository.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		if tenant == nil || cred.TenantID != tenant.ID {
			return nil
		}
		if cred.RevokedAt != nil {
			return nil
		}
		return creds.Revoke(ctx, cred.ID, reason)
	})
}
