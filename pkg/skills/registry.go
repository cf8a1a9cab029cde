// Package skills implements the tenant skill registry and the cross-tenant
// skill market built on top of it.
package skills

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/benbjohnson/clock"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/isolation"
)

const (
	DefaultListLimit   = 100
	DefaultSearchLimit = 10
)

// RegisterParams describes a skill to register. Empty Namespace and Version
// take their defaults.
type RegisterParams struct {
	TenantID            string
	Name                string
	Namespace           string
	Description         string
	Version             string
	Manifest            string
	IsPublic            bool
	RequiredPermissions []string
	Author              string
	Tags                []string
	Config              map[string]any
}

// Patch carries the fields to change on a skill. Nil fields are left alone.
type Patch struct {
	Manifest    *string
	Description *string
	Version     *string
	IsActive    *bool
	IsPublic    *bool
	Tags        *[]string
	Config      *map[string]any
}

// ListQuery filters List and Count.
type ListQuery struct {
	Namespace string
	// Active filters on IsActive when set.
	Active *bool
	// IncludePublic adds public skills owned by other tenants.
	IncludePublic bool
	Tags          []string
	Limit         int
}

// SearchQuery filters Search. Public skills of other tenants are always
// candidates.
type SearchQuery struct {
	// Query is a case-insensitive substring of the name or description.
	Query      string
	Tags       []string
	ActiveOnly bool
	Limit      int
}

// Registry is the tenant-isolated skill registry.
type Registry struct {
	skills *isolation.Store[*domain.Skill]

	Clock clock.Clock
}

// NewRegistry creates a registry. backend may be nil.
func NewRegistry(backend isolation.Backend[*domain.Skill]) *Registry {
	return &Registry{
		skills: isolation.New(backend),
		Clock:  clock.New(),
	}
}

// Register adds a skill or overwrites the tenant's skill of the same name in
// place. An overwrite keeps the id and CreatedAt and reactivates the skill.
func (r *Registry) Register(ctx context.Context, p RegisterParams) (*domain.Skill, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	skill, err := r.skills.Upsert(ctx, domain.SkillID(p.TenantID, p.Name), func(existing *domain.Skill, found bool) *domain.Skill {
		next := r.build(p)
		if found {
			next.CreatedAt = existing.CreatedAt
		}
		return next
	})
	if err != nil {
		return nil, fmt.Errorf("save skill %s/%s: %w", p.TenantID, p.Name, err)
	}
	return skill, nil
}

// registerIfAbsent registers p unless the tenant already has a skill with the
// same name in p's namespace, in which case that skill is returned untouched.
// A same-named skill in another namespace is replaced, as ids ignore namespaces.
func (r *Registry) registerIfAbsent(ctx context.Context, p RegisterParams) (*domain.Skill, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	namespace := namespaceOrDefault(p.Namespace)
	skill, err := r.skills.Upsert(ctx, domain.SkillID(p.TenantID, p.Name), func(existing *domain.Skill, found bool) *domain.Skill {
		if found && existing.Namespace == namespace {
			return existing
		}
		next := r.build(p)
		if found {
			next.CreatedAt = existing.CreatedAt
		}
		return next
	})
	if err != nil {
		return nil, fmt.Errorf("save skill %s/%s: %w", p.TenantID, p.Name, err)
	}
	return skill, nil
}

func (r *Registry) build(p RegisterParams) *domain.Skill {
	now := r.Clock.Now().UTC()
	version := p.Version
	if version == "" {
		version = domain.DefaultSkillVersion
	}
	s := &domain.Skill{
		ID:                  domain.SkillID(p.TenantID, p.Name),
		TenantID:            p.TenantID,
		Name:                p.Name,
		Namespace:           namespaceOrDefault(p.Namespace),
		Description:         p.Description,
		Version:             version,
		Manifest:            p.Manifest,
		IsActive:            true,
		IsPublic:            p.IsPublic,
		RequiredPermissions: slices.Clone(p.RequiredPermissions),
		Author:              p.Author,
		Tags:                slices.Clone(p.Tags),
		Config:              domain.CloneMap(p.Config),
		CreatedAt:           now,
		UpdatedAt:           now,
	}
	if s.RequiredPermissions == nil {
		s.RequiredPermissions = []string{}
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.Config == nil {
		s.Config = map[string]any{}
	}
	return s
}

// Get returns a skill by id regardless of tenant.
func (r *Registry) Get(id string) (*domain.Skill, bool) {
	return r.skills.Get(id)
}

// GetByName returns the tenant's skill with the given name when it lives in
// namespace. An empty namespace means the default one.
func (r *Registry) GetByName(tenantID, name, namespace string) (*domain.Skill, bool) {
	skill, ok := r.skills.Get(domain.SkillID(tenantID, name))
	if !ok || skill.Namespace != namespaceOrDefault(namespace) {
		return nil, false
	}
	return skill, true
}

// Update applies patch to a skill. It returns false for an unknown id.
func (r *Registry) Update(ctx context.Context, id string, patch Patch) (bool, error) {
	now := r.Clock.Now().UTC()
	_, found, err := r.skills.Mutate(ctx, id, func(s *domain.Skill) {
		if patch.Manifest != nil {
			s.Manifest = *patch.Manifest
		}
		if patch.Description != nil {
			s.Description = *patch.Description
		}
		if patch.Version != nil {
			s.Version = *patch.Version
		}
		if patch.IsActive != nil {
			s.IsActive = *patch.IsActive
		}
		if patch.IsPublic != nil {
			s.IsPublic = *patch.IsPublic
		}
		if patch.Tags != nil {
			s.Tags = append([]string{}, (*patch.Tags)...)
		}
		if patch.Config != nil {
			s.Config = domain.CloneMap(*patch.Config)
			if s.Config == nil {
				s.Config = map[string]any{}
			}
		}
		s.UpdatedAt = now
	})
	if err != nil {
		return found, fmt.Errorf("update skill %s: %w", id, err)
	}
	return found, nil
}

// Delete removes a skill. It returns false for an unknown id.
func (r *Registry) Delete(ctx context.Context, id string) (bool, error) {
	_, found, err := r.skills.Delete(ctx, id)
	if err != nil {
		return found, fmt.Errorf("delete skill %s: %w", id, err)
	}
	return found, nil
}

// List returns the tenant's skills, plus other tenants' public skills when
// requested, most recently updated first.
func (r *Registry) List(tenantID string, q ListQuery) []*domain.Skill {
	results := r.candidates(tenantID, q.IncludePublic, q.match)
	sortByRecency(results)
	return truncate(results, q.Limit, DefaultListLimit)
}

// Count returns how many skills List would return without a limit.
func (r *Registry) Count(tenantID string, q ListQuery) int {
	return len(r.candidates(tenantID, q.IncludePublic, q.match))
}

// Search matches the tenant's skills and every public skill against q.
func (r *Registry) Search(tenantID string, q SearchQuery) []*domain.Skill {
	results := r.candidates(tenantID, true, q.match)
	sortByRecency(results)
	return truncate(results, q.Limit, DefaultSearchLimit)
}

// CheckPermission reports whether holding perms allows using the skill.
// Unknown skills are never permitted.
func (r *Registry) CheckPermission(id string, perms []string) bool {
	skill, ok := r.skills.Get(id)
	if !ok {
		return false
	}
	return skill.Permits(perms)
}

// Load adds persisted skills without writing them back.
func (r *Registry) Load(skills ...*domain.Skill) {
	r.skills.Load(skills...)
}

// candidates walks the tenant's own skills and, with public set, the public
// skills of every other tenant.
func (r *Registry) candidates(tenantID string, public bool, pred func(*domain.Skill) bool) []*domain.Skill {
	results := r.skills.Select(tenantID, pred)
	if public {
		results = append(results, r.skills.SelectAll(func(s *domain.Skill) bool {
			return s.IsPublic && s.TenantID != tenantID && pred(s)
		})...)
	}
	return results
}

func (q ListQuery) match(s *domain.Skill) bool {
	if q.Namespace != "" && s.Namespace != q.Namespace {
		return false
	}
	if q.Active != nil && s.IsActive != *q.Active {
		return false
	}
	if len(q.Tags) > 0 && !s.HasAnyTag(q.Tags) {
		return false
	}
	return true
}

func (q SearchQuery) match(s *domain.Skill) bool {
	if q.ActiveOnly && !s.IsActive {
		return false
	}
	if len(q.Tags) > 0 && !s.HasAnyTag(q.Tags) {
		return false
	}
	return matchesText(s, q.Query)
}

func matchesText(s *domain.Skill, query string) bool {
	if query == "" {
		return true
	}
	query = strings.ToLower(query)
	return strings.Contains(strings.ToLower(s.Name), query) ||
		strings.Contains(strings.ToLower(s.Description), query)
}

func validate(p RegisterParams) error {
	if p.TenantID == "" {
		return domain.ErrTenantRequired
	}
	if p.Name == "" {
		return domain.ErrNameRequired
	}
	return nil
}

func namespaceOrDefault(ns string) string {
	if ns == "" {
		return domain.DefaultNamespace
	}
	return ns
}

func sortByRecency(skills []*domain.Skill) {
	sort.Slice(skills, func(i, j int) bool {
		if !skills[i].UpdatedAt.Equal(skills[j].UpdatedAt) {
			return skills[i].UpdatedAt.After(skills[j].UpdatedAt)
		}
		return skills[i].ID < skills[j].ID
	})
}

func truncate(skills []*domain.Skill, limit, def int) []*domain.Skill {
	if limit <= 0 {
		limit = def
	}
	if len(skills) > limit {
		skills = skills[:limit]
	}
	return skills
}
