package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

type licenseRow struct {
	ID               string                      `db:"id"`
	TenantID         string                      `db:"tenant_id"`
	Key              string                      `db:"license_key"`
	Type             string                      `db:"license_type"`
	Status           string                      `db:"status"`
	MaxUsers         int                         `db:"max_users"`
	MaxConversations int                         `db:"max_conversations"`
	IssuedAt         time.Time                   `db:"issued_at"`
	ExpiresAt        time.Time                   `db:"expires_at"`
	Features         jsonColumn[map[string]bool] `db:"features"`
}

// LicensesRepository persists licenses together with their activation keys.
type LicensesRepository struct {
	t table[*domain.License, licenseRow]
}

// NewLicensesRepository creates a new licenses repository.
func NewLicensesRepository(db *DB) *LicensesRepository {
	return &LicensesRepository{t: table[*domain.License, licenseRow]{
		db:      db,
		name:    "licenses",
		orderBy: "issued_at, id",
		toRow: func(l *domain.License) map[string]any {
			return map[string]any{
				"id":                l.ID,
				"tenant_id":         l.TenantID,
				"license_key":       l.Key,
				"license_type":      string(l.Type),
				"status":            string(l.Status),
				"max_users":         l.MaxUsers,
				"max_conversations": l.MaxConversations,
				"issued_at":         l.IssuedAt,
				"expires_at":        l.ExpiresAt,
				"features":          jsonOf(nonNilFlags(l.Features)),
			}
		},
		fromRow: func(r licenseRow) *domain.License {
			return &domain.License{
				ID:               r.ID,
				TenantID:         r.TenantID,
				Key:              r.Key,
				Type:             domain.LicenseType(r.Type),
				Status:           domain.LicenseStatus(r.Status),
				MaxUsers:         r.MaxUsers,
				MaxConversations: r.MaxConversations,
				IssuedAt:         r.IssuedAt,
				ExpiresAt:        r.ExpiresAt,
				Features:         nonNilFlags(r.Features.V),
			}
		},
	}}
}

// Save inserts or replaces a license.
func (r *LicensesRepository) Save(ctx context.Context, license *domain.License) error {
	return r.t.save(ctx, license)
}

// Delete removes a license.
func (r *LicensesRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

// GetByID retrieves a license by ID.
func (r *LicensesRepository) GetByID(ctx context.Context, id string) (*domain.License, error) {
	return r.t.get(ctx, id, domain.ErrLicenseNotFound)
}

// List returns every license ordered by issue time.
func (r *LicensesRepository) List(ctx context.Context) ([]*domain.License, error) {
	return r.t.list(ctx, nil)
}

// ListByTenant returns the licenses issued to one tenant.
func (r *LicensesRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.License, error) {
	return r.t.list(ctx, sq.Eq{"tenant_id": tenantID})
}
