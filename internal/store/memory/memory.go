// Package memory implements the repository contracts in process memory.
// It backs service tests and local development; a single mutex stands in
// for the row locks the pg implementation takes, which preserves the
// same serialization guarantees.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

// Store implements repository.Store.
type Store struct {
	mu sync.Mutex

	tenants       map[string]*repository.Tenant
	accounts      map[repository.OwnerKind]map[string]*repository.Account
	connections   map[string]*repository.ProviderConnection
	authRequests  map[string]*repository.AuthRequest
	exchangeCodes map[string]*repository.ExchangeCode
	credentials   map[repository.OwnerKind]map[string]*repository.RefreshCredential
}

// New returns an empty store.
func New() *Store {
	return &Store{
		tenants: map[string]*repository.Tenant{},
		accounts: map[repository.OwnerKind]map[string]*repository.Account{
			repository.OwnerUser:   {},
			repository.OwnerMember: {},
		},
		connections:   map[string]*repository.ProviderConnection{},
		authRequests:  map[string]*repository.AuthRequest{},
		exchangeCodes: map[string]*repository.ExchangeCode{},
		credentials: map[repository.OwnerKind]map[string]*repository.RefreshCredential{
			repository.OwnerUser:   {},
			repository.OwnerMember: {},
		},
	}
}

// SeedTenant registers a tenant for tests.
func (s *Store) SeedTenant(t *repository.Tenant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.tenants[t.ID] = &cp
}

func (s *Store) Tenants() repository.TenantRepository { return &tenantRepo{s: s} }

func (s *Store) AuthRequests() repository.AuthRequestRepository { return &authRequestRepo{s: s} }

func (s *Store) ExchangeCodes() repository.ExchangeCodeRepository { return &exchangeCodeRepo{s: s} }

func (s *Store) Credentials(kind repository.OwnerKind) repository.CredentialRepository {
	return &credentialRepo{s: s, kind: kind}
}

// WithinTx serializes the whole callback against every other transaction
// and restores a snapshot when fn fails, mirroring a rollback.
func (s *Store) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(&storeTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

type snapshot struct {
	connections   map[string]*repository.ProviderConnection
	authRequests  map[string]*repository.AuthRequest
	exchangeCodes map[string]*repository.ExchangeCode
	accounts      map[repository.OwnerKind]map[string]*repository.Account
	credentials   map[repository.OwnerKind]map[string]*repository.RefreshCredential
}

func (s *Store) snapshot() snapshot {
	snap := snapshot{
		connections:   map[string]*repository.ProviderConnection{},
		authRequests:  map[string]*repository.AuthRequest{},
		exchangeCodes: map[string]*repository.ExchangeCode{},
		accounts:      map[repository.OwnerKind]map[string]*repository.Account{},
		credentials:   map[repository.OwnerKind]map[string]*repository.RefreshCredential{},
	}
	for id, c := range s.connections {
		cp := *c
		snap.connections[id] = &cp
	}
	for id, r := range s.authRequests {
		cp := *r
		snap.authRequests[id] = &cp
	}
	for id, c := range s.exchangeCodes {
		cp := *c
		snap.exchangeCodes[id] = &cp
	}
	for kind, m := range s.accounts {
		snap.accounts[kind] = map[string]*repository.Account{}
		for id, a := range m {
			cp := *a
			snap.accounts[kind][id] = &cp
		}
	}
	for kind, m := range s.credentials {
		snap.credentials[kind] = map[string]*repository.RefreshCredential{}
		for id, c := range m {
			cp := *c
			snap.credentials[kind][id] = &cp
		}
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.connections = snap.connections
	s.authRequests = snap.authRequests
	s.exchangeCodes = snap.exchangeCodes
	s.accounts = snap.accounts
	s.credentials = snap.credentials
}

type storeTx struct {
	s *Store
}

func (t *storeTx) Accounts(kind repository.OwnerKind) repository.AccountTxRepository {
	return &accountTxRepo{s: t.s, kind: kind}
}

func (t *storeTx) Connections() repository.ConnectionTxRepository {
	return &connectionTxRepo{s: t.s}
}

func (t *storeTx) AuthRequests() repository.AuthRequestTxRepository {
	return &authRequestTxRepo{s: t.s}
}

func (t *storeTx) ExchangeCodes() repository.ExchangeCodeTxRepository {
	return &exchangeCodeTxRepo{s: t.s}
}

func (t *storeTx) Credentials(kind repository.OwnerKind) repository.CredentialTxRepository {
	return &credentialTxRepo{s: t.s, kind: kind}
}

// ─── tenants ───

type tenantRepo struct {
	s *Store
}

func (r *tenantRepo) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*repository.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, t := range r.s.tenants {
		if t.APIKeyHash == apiKeyHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t, ok := r.s.tenants[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// ─── accounts (tx) ───

type accountTxRepo struct {
	s    *Store
	kind repository.OwnerKind
}

func (r *accountTxRepo) GetByEmailForUpdate(ctx context.Context, tenantID, email string) (*repository.Account, error) {
	for _, a := range r.s.accounts[r.kind] {
		if a.TenantID == tenantID && strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *accountTxRepo) GetByIDForUpdate(ctx context.Context, id string) (*repository.Account, error) {
	a, ok := r.s.accounts[r.kind][id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (r *accountTxRepo) Create(ctx context.Context, input repository.CreateAccountInput) (*repository.Account, error) {
	for _, a := range r.s.accounts[r.kind] {
		if a.TenantID == input.TenantID && strings.EqualFold(a.Email, input.Email) {
			return nil, repository.ErrConflict
		}
	}
	now := time.Now().UTC()
	a := &repository.Account{
		ID:            uuid.NewString(),
		TenantID:      input.TenantID,
		Email:         strings.ToLower(input.Email),
		EmailVerified: input.EmailVerified,
		DisplayName:   input.DisplayName,
		PasswordHash:  input.PasswordHash,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.s.accounts[r.kind][a.ID] = a
	cp := *a
	return &cp, nil
}

func (r *accountTxRepo) Update(ctx context.Context, id string, input repository.UpdateAccountInput) error {
	a, ok := r.s.accounts[r.kind][id]
	if !ok {
		return repository.ErrNotFound
	}
	if input.EmailVerified != nil {
		a.EmailVerified = *input.EmailVerified
	}
	if input.DisplayName != nil {
		a.DisplayName = *input.DisplayName
	}
	a.UpdatedAt = time.Now().UTC()
	return nil
}

// ─── connections (tx) ───

type connectionTxRepo struct {
	s *Store
}

func (r *connectionTxRepo) GetBySubject(ctx context.Context, tenantID, provider, subjectID string) (*repository.ProviderConnection, error) {
	for _, c := range r.s.connections {
		if c.TenantID == tenantID && c.Provider == provider && c.SubjectID == subjectID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *connectionTxRepo) Insert(ctx context.Context, conn repository.ProviderConnection) (*repository.ProviderConnection, error) {
	for _, c := range r.s.connections {
		if c.TenantID == conn.TenantID && c.Provider == conn.Provider && c.SubjectID == conn.SubjectID {
			return nil, repository.ErrConflict
		}
	}
	now := time.Now().UTC()
	conn.ID = uuid.NewString()
	conn.CreatedAt = now
	conn.UpdatedAt = now
	cp := conn
	r.s.connections[conn.ID] = &cp
	return &conn, nil
}

func (r *connectionTxRepo) UpdateEmail(ctx context.Context, id, email string) error {
	c, ok := r.s.connections[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.Email = email
	c.UpdatedAt = time.Now().UTC()
	return nil
}

// ─── auth requests ───

type authRequestRepo struct {
	s *Store
}

func (r *authRequestRepo) Create(ctx context.Context, req repository.AuthRequest) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.authRequests {
		if existing.StateHash == req.StateHash {
			return repository.ErrConflict
		}
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	cp := req
	r.s.authRequests[req.ID] = &cp
	return nil
}

func (r *authRequestRepo) Get(ctx context.Context, stateHash string, now time.Time) (*repository.AuthRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, req := range r.s.authRequests {
		if req.StateHash != stateHash {
			continue
		}
		if !now.Before(req.ExpiresAt) {
			delete(r.s.authRequests, id)
			return nil, repository.ErrExpired
		}
		cp := *req
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *authRequestRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, req := range r.s.authRequests {
		if !now.Before(req.ExpiresAt) {
			delete(r.s.authRequests, id)
			n++
		}
	}
	return n, nil
}

type authRequestTxRepo struct {
	s *Store
}

func (r *authRequestTxRepo) DeleteByStateHash(ctx context.Context, stateHash string) (bool, error) {
	for id, req := range r.s.authRequests {
		if req.StateHash == stateHash {
			delete(r.s.authRequests, id)
			return true, nil
		}
	}
	return false, nil
}

// ─── exchange codes ───

type exchangeCodeTxRepo struct {
	s *Store
}

func (r *exchangeCodeTxRepo) Insert(ctx context.Context, code repository.ExchangeCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	if code.CreatedAt.IsZero() {
		code.CreatedAt = time.Now().UTC()
	}
	cp := code
	r.s.exchangeCodes[code.ID] = &cp
	return nil
}

func (r *exchangeCodeTxRepo) ConsumeByHash(ctx context.Context, codeHash string, now time.Time) (*repository.ExchangeCode, error) {
	for _, c := range r.s.exchangeCodes {
		if c.CodeHash != codeHash {
			continue
		}
		if c.ConsumedAt != nil {
			return nil, repository.ErrNotFound
		}
		if !now.Before(c.ExpiresAt) {
			return nil, repository.ErrExpired
		}
		ts := now
		c.ConsumedAt = &ts
		cp := *c
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

type exchangeCodeRepo struct {
	s *Store
}

func (r *exchangeCodeRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, c := range r.s.exchangeCodes {
		if !now.Before(c.ExpiresAt) || c.ConsumedAt != nil {
			delete(r.s.exchangeCodes, id)
			n++
		}
	}
	return n, nil
}

// ─── credentials ───

type credentialTxRepo struct {
	s    *Store
	kind repository.OwnerKind
}

func (r *credentialTxRepo) GetByHashForUpdate(ctx context.Context, tokenHash string) (*repository.RefreshCredential, error) {
	for _, c := range r.s.credentials[r.kind] {
		if c.TokenHash == tokenHash {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *credentialTxRepo) Create(ctx context.Context, input repository.CreateCredentialInput) (*repository.RefreshCredential, error) {
	for _, c := range r.s.credentials[r.kind] {
		if c.TokenHash == input.TokenHash {
			return nil, repository.ErrConflict
		}
	}
	c := &repository.RefreshCredential{
		ID:        uuid.NewString(),
		TenantID:  input.TenantID,
		AccountID: input.AccountID,
		TokenHash: input.TokenHash,
		IssuedAt:  time.Now().UTC(),
		ExpiresAt: input.ExpiresAt,
		IP:        input.Meta.IP,
		UserAgent: input.Meta.UserAgent,
	}
	r.s.credentials[r.kind][c.ID] = c
	cp := *c
	return &cp, nil
}

func (r *credentialTxRepo) ListActiveForUpdate(ctx context.Context, accountID string, now time.Time) ([]repository.RefreshCredential, error) {
	var out []repository.RefreshCredential
	for _, c := range r.s.credentials[r.kind] {
		if c.AccountID == accountID && c.Active(now) {
			out = append(out, *c)
		}
	}
	// oldest issued first
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].IssuedAt.Before(out[j-1].IssuedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (r *credentialTxRepo) Revoke(ctx context.Context, id, reason string) error {
	c, ok := r.s.credentials[r.kind][id]
	if !ok || c.RevokedAt != nil {
		return repository.ErrConflict
	}
	now := time.Now().UTC()
	c.RevokedAt = &now
	c.RevokeReason = reason
	return nil
}

func (r *credentialTxRepo) SetReplacedBy(ctx context.Context, id, successorID string) error {
	c, ok := r.s.credentials[r.kind][id]
	if !ok {
		return repository.ErrNotFound
	}
	c.ReplacedBy = &successorID
	return nil
}

func (r *credentialTxRepo) RevokeDescendants(ctx context.Context, id, reason string) (int, error) {
	n := 0
	now := time.Now().UTC()
	cur, ok := r.s.credentials[r.kind][id]
	for ok && cur.ReplacedBy != nil {
		next, found := r.s.credentials[r.kind][*cur.ReplacedBy]
		if !found {
			break
		}
		if next.RevokedAt == nil {
			next.RevokedAt = &now
			next.RevokeReason = reason
			n++
		}
		cur, ok = next, true
	}
	return n, nil
}

type credentialRepo struct {
	s    *Store
	kind repository.OwnerKind
}

func (r *credentialRepo) GetByHash(ctx context.Context, tokenHash string) (*repository.RefreshCredential, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.credentials[r.kind] {
		if c.TokenHash == tokenHash {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *credentialRepo) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n := 0
	for id, c := range r.s.credentials[r.kind] {
		if !now.Before(c.ExpiresAt) {
			delete(r.s.credentials[r.kind], id)
			n++
		}
	}
	return n, nil
}
