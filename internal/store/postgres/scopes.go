package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"facerelay/internal/store"

	"github.com/lib/pq"
)

// ScopeRepository is the PostgreSQL-backed store.ScopeRepository.
type ScopeRepository struct {
	pool *Pool
}

func NewScopeRepository(pool *Pool) *ScopeRepository {
	return &ScopeRepository{pool: pool}
}

func (r *ScopeRepository) Get(ctx context.Context, sourceID string) (*store.CapabilityScope, error) {
	var capabilities pq.StringArray
	err := r.pool.QueryRow(ctx,
		`SELECT capabilities FROM scopes WHERE source_id = $1`,
		sourceID,
	).Scan(&capabilities)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query scope: %w", err)
	}

	scope := &store.CapabilityScope{SourceID: sourceID}
	for _, c := range capabilities {
		scope.Capabilities = append(scope.Capabilities, store.Capability(c))
	}
	return scope, nil
}

func (r *ScopeRepository) Add(ctx context.Context, scope *store.CapabilityScope) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO scopes (source_id, capabilities) VALUES ($1, $2)`,
		scope.SourceID, capabilityArray(scope.Capabilities),
	)
	if err != nil {
		return fmt.Errorf("insert scope: %w", translateError(err))
	}
	return nil
}

func (r *ScopeRepository) AddOrUpdate(ctx context.Context, scope *store.CapabilityScope) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO scopes (source_id, capabilities) VALUES ($1, $2)
		 ON CONFLICT (source_id) DO UPDATE SET capabilities = EXCLUDED.capabilities`,
		scope.SourceID, capabilityArray(scope.Capabilities),
	)
	if err != nil {
		return fmt.Errorf("upsert scope: %w", err)
	}
	return nil
}

func (r *ScopeRepository) Delete(ctx context.Context, sourceID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM scopes WHERE source_id = $1`, sourceID); err != nil {
		return fmt.Errorf("delete scope: %w", err)
	}
	return nil
}

func capabilityArray(capabilities []store.Capability) pq.StringArray {
	arr := make(pq.StringArray, len(capabilities))
	for i, c := range capabilities {
		arr[i] = string(c)
	}
	return arr
}
