package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/janus/internal/domain/repository"
)

type tenantRepo struct {
	pool *pgxpool.Pool
}

const tenantColumns = `id, slug, name, api_key_hash, session_ceiling, providers, created_at`

func (r *tenantRepo) GetByAPIKeyHash(ctx context.Context, apiKeyHash string) (*repository.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM project WHERE api_key_hash = $1`, apiKeyHash)
	return scanTenant(row)
}

func (r *tenantRepo) GetByID(ctx context.Context, id string) (*repository.Tenant, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+tenantColumns+` FROM project WHERE id = $1`, id)
	return scanTenant(row)
}

func scanTenant(row pgx.Row) (*repository.Tenant, error) {
	var (
		t         repository.Tenant
		providers []byte
	)
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.APIKeyHash, &t.SessionCeiling, &providers, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pg: scan tenant: %w", err)
	}
	t.Providers = map[string]repository.ProviderSettings{}
	if len(providers) > 0 {
		if err := json.Unmarshal(providers, &t.Providers); err != nil {
			return nil, fmt.Errorf("pg: decode tenant providers: %w", err)
		}
	}
	return &t, nil
}
