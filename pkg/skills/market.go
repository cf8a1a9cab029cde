package skills

import (
	"context"

	"github.com/tendant/simple-tenancy/pkg/domain"
)

const DefaultBrowseLimit = 20

// Listing is the public view of a skill shown in the market.
type Listing struct {
	ID          string   `json:"id"`
	TenantID    string   `json:"tenant_id"`
	Name        string   `json:"name"`
	Namespace   string   `json:"namespace"`
	Description string   `json:"description"`
	Version     string   `json:"version"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	IsPublic    bool     `json:"is_public"`
}

// BrowseQuery filters Browse. Category and Query both apply when set.
type BrowseQuery struct {
	// Category matches skills tagged with it.
	Category string
	// Query is a case-insensitive substring of the name or description.
	Query string
	Limit int
}

// Market lets tenants discover and copy each other's public skills.
type Market struct {
	registry *Registry
}

// NewMarket creates a market over registry.
func NewMarket(registry *Registry) *Market {
	return &Market{registry: registry}
}

// Browse lists the active skills visible to tenantID: its own plus every
// public skill.
func (m *Market) Browse(tenantID string, q BrowseQuery) []Listing {
	skills := m.registry.candidates(tenantID, true, func(s *domain.Skill) bool {
		if !s.IsActive {
			return false
		}
		if q.Category != "" && !s.HasAnyTag([]string{q.Category}) {
			return false
		}
		return matchesText(s, q.Query)
	})
	sortByRecency(skills)
	skills = truncate(skills, q.Limit, DefaultBrowseLimit)

	out := make([]Listing, 0, len(skills))
	for _, s := range skills {
		out = append(out, Listing{
			ID:          s.ID,
			TenantID:    s.TenantID,
			Name:        s.Name,
			Namespace:   s.Namespace,
			Description: s.Description,
			Version:     s.Version,
			Author:      s.Author,
			Tags:        s.Tags,
			IsPublic:    s.IsPublic,
		})
	}
	return out
}

// Install copies a public skill into targetTenant as a private skill. If the
// target already has a skill of that name in namespace, it is returned as is,
// so repeated installs are harmless. A missing or non-public source reports
// false.
func (m *Market) Install(ctx context.Context, sourceID, targetTenant, namespace string) (*domain.Skill, bool, error) {
	if targetTenant == "" {
		return nil, false, domain.ErrTenantRequired
	}
	source, ok := m.registry.Get(sourceID)
	if !ok || !source.IsPublic {
		return nil, false, nil
	}

	skill, err := m.registry.registerIfAbsent(ctx, RegisterParams{
		TenantID:            targetTenant,
		Name:                source.Name,
		Namespace:           namespace,
		Description:         source.Description,
		Version:             source.Version,
		Manifest:            source.Manifest,
		IsPublic:            false,
		RequiredPermissions: source.RequiredPermissions,
		Author:              source.Author,
		Tags:                source.Tags,
		Config:              source.Config,
	})
	if err != nil {
		return nil, true, err
	}
	return skill, true, nil
}

// Uninstall deletes a skill owned by tenantID. Skills of other tenants are
// reported as missing.
func (m *Market) Uninstall(ctx context.Context, tenantID, skillID string) (bool, error) {
	skill, ok := m.registry.Get(skillID)
	if !ok || skill.TenantID != tenantID {
		return false, nil
	}
	return m.registry.Delete(ctx, skillID)
}
