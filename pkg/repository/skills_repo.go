package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

type skillRow struct {
	ID                  string                     `db:"id"`
	TenantID            string                     `db:"tenant_id"`
	Name                string                     `db:"name"`
	Namespace           string                     `db:"namespace"`
	Description         string                     `db:"description"`
	Version             string                     `db:"version"`
	Manifest            string                     `db:"manifest"`
	IsActive            bool                       `db:"is_active"`
	IsPublic            bool                       `db:"is_public"`
	RequiredPermissions jsonColumn[[]string]       `db:"required_permissions"`
	Author              string                     `db:"author"`
	Tags                jsonColumn[[]string]       `db:"tags"`
	Config              jsonColumn[map[string]any] `db:"config"`
	CreatedAt           time.Time                  `db:"created_at"`
	UpdatedAt           time.Time                  `db:"updated_at"`
}

// SkillsRepository persists skills.
type SkillsRepository struct {
	t table[*domain.Skill, skillRow]
}

// NewSkillsRepository creates a new skills repository.
func NewSkillsRepository(db *DB) *SkillsRepository {
	return &SkillsRepository{t: table[*domain.Skill, skillRow]{
		db:      db,
		name:    "skills",
		orderBy: "tenant_id, namespace, name",
		toRow: func(s *domain.Skill) map[string]any {
			return map[string]any{
				"id":                   s.ID,
				"tenant_id":            s.TenantID,
				"name":                 s.Name,
				"namespace":            s.Namespace,
				"description":          s.Description,
				"version":              s.Version,
				"manifest":             s.Manifest,
				"is_active":            s.IsActive,
				"is_public":            s.IsPublic,
				"required_permissions": jsonOf(nonNilStrings(s.RequiredPermissions)),
				"author":               s.Author,
				"tags":                 jsonOf(nonNilStrings(s.Tags)),
				"config":               jsonOf(nonNilMap(s.Config)),
				"created_at":           s.CreatedAt,
				"updated_at":           s.UpdatedAt,
			}
		},
		fromRow: func(r skillRow) *domain.Skill {
			return &domain.Skill{
				ID:                  r.ID,
				TenantID:            r.TenantID,
				Name:                r.Name,
				Namespace:           r.Namespace,
				Description:         r.Description,
				Version:             r.Version,
				Manifest:            r.Manifest,
				IsActive:            r.IsActive,
				IsPublic:            r.IsPublic,
				RequiredPermissions: nonNilStrings(r.RequiredPermissions.V),
				Author:              r.Author,
				Tags:                nonNilStrings(r.Tags.V),
				Config:              nonNilMap(r.Config.V),
				CreatedAt:           r.CreatedAt,
				UpdatedAt:           r.UpdatedAt,
			}
		},
	}}
}

// Save inserts or replaces a skill.
func (r *SkillsRepository) Save(ctx context.Context, skill *domain.Skill) error {
	return r.t.save(ctx, skill)
}

// Delete removes a skill.
func (r *SkillsRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

// GetByID retrieves a skill by ID.
func (r *SkillsRepository) GetByID(ctx context.Context, id string) (*domain.Skill, error) {
	return r.t.get(ctx, id, domain.ErrSkillNotFound)
}

// List returns every skill.
func (r *SkillsRepository) List(ctx context.Context) ([]*domain.Skill, error) {
	return r.t.list(ctx, nil)
}

// ListByNamespace returns a tenant's skills in one namespace.
func (r *SkillsRepository) ListByNamespace(ctx context.Context, tenantID, namespace string) ([]*domain.Skill, error) {
	return r.t.list(ctx, sq.Eq{"tenant_id": tenantID, "namespace": namespace})
}
