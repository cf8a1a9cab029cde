package repository

import (
	"context"
	"time"

	"github.com/tendant/simple-tenancy/pkg/domain"
)

type tenantRow struct {
	ID          string                     `db:"id"`
	Name        string                     `db:"name"`
	LLMProvider string                     `db:"llm_provider"`
	LLMModel    string                     `db:"llm_model"`
	Settings    jsonColumn[map[string]any]  `db:"settings"`
	Features    jsonColumn[map[string]bool] `db:"features"`
	CreatedAt   time.Time                  `db:"created_at"`
	UpdatedAt   time.Time                  `db:"updated_at"`
}

// TenantsRepository handles tenant data persistence.
type TenantsRepository struct {
	t table[*domain.Tenant, tenantRow]
}

// NewTenantsRepository creates a new tenants repository.
func NewTenantsRepository(db *DB) *TenantsRepository {
	return &TenantsRepository{t: table[*domain.Tenant, tenantRow]{
		db:      db,
		name:    "tenants",
		orderBy: "id",
		toRow: func(t *domain.Tenant) map[string]any {
			return map[string]any{
				"id":           t.ID,
				"name":         t.Name,
				"llm_provider": t.LLMProvider,
				"llm_model":    t.LLMModel,
				"settings":     jsonOf(nonNilMap(t.Settings)),
				"features":     jsonOf(nonNilFlags(t.Features)),
				"created_at":   t.CreatedAt,
				"updated_at":   t.UpdatedAt,
			}
		},
		fromRow: func(r tenantRow) *domain.Tenant {
			return &domain.Tenant{
				ID:          r.ID,
				Name:        r.Name,
				LLMProvider: r.LLMProvider,
				LLMModel:    r.LLMModel,
				Settings:    nonNilMap(r.Settings.V),
				Features:    nonNilFlags(r.Features.V),
				CreatedAt:   r.CreatedAt,
				UpdatedAt:   r.UpdatedAt,
			}
		},
	}}
}

// Save inserts or replaces a tenant.
func (r *TenantsRepository) Save(ctx context.Context, tenant *domain.Tenant) error {
	return r.t.save(ctx, tenant)
}

// Delete removes a tenant.
func (r *TenantsRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

// GetByID retrieves a tenant by ID.
func (r *TenantsRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	return r.t.get(ctx, id, domain.ErrTenantNotFound)
}

// List returns every tenant.
func (r *TenantsRepository) List(ctx context.Context) ([]*domain.Tenant, error) {
	return r.t.list(ctx, nil)
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}

func nonNilFlags(m map[string]bool) map[string]bool {
	if m == nil {
		return map[string]bool{}
	}
	return m
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
