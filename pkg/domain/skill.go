package domain

import (
	"slices"
	"time"
)

const (
	// DefaultNamespace is used when a skill is registered without one.
	DefaultNamespace = "default"
	// DefaultSkillVersion is used when a skill is registered without a version.
	DefaultSkillVersion = "1.0.0"
)

// Skill is a named, versioned unit of agent instructions owned by a tenant.
type Skill struct {
	ID                  string         `json:"id"`
	TenantID            string         `json:"tenant_id"`
	Name                string         `json:"name"`
	Namespace           string         `json:"namespace"`
	Description         string         `json:"description"`
	Version             string         `json:"version"`
	Manifest            string         `json:"manifest"`
	IsActive            bool           `json:"is_active"`
	IsPublic            bool           `json:"is_public"`
	RequiredPermissions []string       `json:"required_permissions"`
	Author              string         `json:"author"`
	Tags                []string       `json:"tags"`
	Config              map[string]any `json:"config"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

// HasAnyTag returns true if the skill carries at least one of tags.
func (s *Skill) HasAnyTag(tags []string) bool {
	return hasAny(s.Tags, tags)
}

// Permits returns true if the skill requires nothing, or if any one of its
// required permissions is held.
func (s *Skill) Permits(held []string) bool {
	if len(s.RequiredPermissions) == 0 {
		return true
	}
	return hasAny(held, s.RequiredPermissions)
}

func (s *Skill) EntityID() string     { return s.ID }
func (s *Skill) EntityTenant() string { return s.TenantID }

// Clone returns a deep copy of the skill.
func (s *Skill) Clone() *Skill {
	c := *s
	c.RequiredPermissions = slices.Clone(s.RequiredPermissions)
	c.Tags = slices.Clone(s.Tags)
	c.Config = CloneMap(s.Config)
	return &c
}
