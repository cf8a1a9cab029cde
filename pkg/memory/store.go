// Package memory stores per-tenant agent memories.
package memory

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
	DefaultSearchLimit = 10
	DefaultUserLimit   = 100
)

// AddParams describes a memory to remember.
type AddParams struct {
	TenantID   string
	UserID     string
	Content    string
	Type       domain.MemoryType
	Tags       []string
	Importance int
	Embedding  []float32
}

// Patch carries the fields to change on a memory. Nil fields are left alone;
// every non-nil field is applied, zero values included.
type Patch struct {
	Content    *string
	Tags       *[]string
	Importance *int
	IsPinned   *bool
}

// Filter narrows a tenant's memories. Empty fields match everything.
type Filter struct {
	UserID string
	Type   domain.MemoryType
	// Tags matches memories carrying any of the tags.
	Tags []string
	// Query is a case-insensitive substring of the content.
	Query string
}

// Query is a Filter with a result limit.
type Query struct {
	Filter
	Limit int
}

// Store is the tenant-isolated memory store.
type Store struct {
	items *isolation.Store[*domain.MemoryItem]

	Clock clock.Clock
}

// NewStore creates a memory store. backend may be nil.
func NewStore(backend isolation.Backend[*domain.MemoryItem]) *Store {
	return &Store{
		items: isolation.New(backend),
		Clock: clock.New(),
	}
}

// Add remembers content for a tenant. The id is derived from tenant and
// content, so adding the same content twice updates one memory: the new
// call's fields replace the old ones, but CreatedAt and IsPinned are kept.
func (s *Store) Add(ctx context.Context, p AddParams) (*domain.MemoryItem, error) {
	if p.TenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	if p.Content == "" {
		return nil, domain.ErrContentRequired
	}
	typ := p.Type
	if typ == "" {
		typ = domain.MemoryLongTerm
	}
	if !typ.Valid() {
		return nil, domain.ErrInvalidMemoryType
	}

	id := domain.MemoryID(p.TenantID, p.Content)
	now := s.Clock.Now().UTC()
	item, err := s.items.Upsert(ctx, id, func(existing *domain.MemoryItem, found bool) *domain.MemoryItem {
		next := &domain.MemoryItem{
			ID:         id,
			TenantID:   p.TenantID,
			UserID:     p.UserID,
			Content:    p.Content,
			Type:       typ,
			Tags:       slices.Clone(p.Tags),
			Importance: p.Importance,
			Embedding:  slices.Clone(p.Embedding),
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if next.Tags == nil {
			next.Tags = []string{}
		}
		if found {
			next.CreatedAt = existing.CreatedAt
			next.IsPinned = existing.IsPinned
		}
		return next
	})
	if err != nil {
		return nil, fmt.Errorf("save memory: %w", err)
	}
	return item, nil
}

// Get returns a memory by id regardless of tenant and records the access time.
func (s *Store) Get(id string) (*domain.MemoryItem, bool) {
	now := s.Clock.Now().UTC()
	return s.items.Access(id, func(m *domain.MemoryItem) {
		m.LastAccessedAt = &now
	})
}

// GetForTenant returns a memory of the tenant and records the access time.
// Memories of other tenants are reported as missing and left untouched.
func (s *Store) GetForTenant(tenantID, id string) (*domain.MemoryItem, bool) {
	now := s.Clock.Now().UTC()
	item, ok := s.items.Access(id, func(m *domain.MemoryItem) {
		if m.TenantID == tenantID {
			m.LastAccessedAt = &now
		}
	})
	if !ok || item.TenantID != tenantID {
		return nil, false
	}
	return item, true
}

// Update applies patch to a memory. It returns false for an unknown id.
// Content, when supplied, must not be empty.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (bool, error) {
	if patch.Content != nil && *patch.Content == "" {
		return false, domain.ErrContentRequired
	}
	now := s.Clock.Now().UTC()
	_, found, err := s.items.Mutate(ctx, id, func(m *domain.MemoryItem) {
		if patch.Content != nil {
			m.Content = *patch.Content
		}
		if patch.Tags != nil {
			m.Tags = slices.Clone(*patch.Tags)
			if m.Tags == nil {
				m.Tags = []string{}
			}
		}
		if patch.Importance != nil {
			m.Importance = *patch.Importance
		}
		if patch.IsPinned != nil {
			m.IsPinned = *patch.IsPinned
		}
		m.UpdatedAt = now
	})
	if err != nil {
		return found, fmt.Errorf("update memory %s: %w", id, err)
	}
	return found, nil
}

// Delete removes a memory. It returns false for an unknown id.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	_, found, err := s.items.Delete(ctx, id)
	if err != nil {
		return found, fmt.Errorf("delete memory %s: %w", id, err)
	}
	return found, nil
}

// Search returns the tenant's memories matching q, pinned first, then by
// importance, then most recently updated.
func (s *Store) Search(tenantID string, q Query) []*domain.MemoryItem {
	results := s.items.Select(tenantID, q.Filter.match)
	sort.Slice(results, func(i, j int) bool { return ranksBefore(results[i], results[j]) })
	return truncate(results, q.Limit, DefaultSearchLimit)
}

// GetByUser returns a user's memories, most recently updated first.
func (s *Store) GetByUser(tenantID, userID string, limit int) []*domain.MemoryItem {
	results := s.items.Select(tenantID, func(m *domain.MemoryItem) bool { return m.UserID == userID })
	sort.Slice(results, func(i, j int) bool {
		if !results[i].UpdatedAt.Equal(results[j].UpdatedAt) {
			return results[i].UpdatedAt.After(results[j].UpdatedAt)
		}
		return results[i].ID < results[j].ID
	})
	return truncate(results, limit, DefaultUserLimit)
}

// Count returns how many of the tenant's memories match f.
func (s *Store) Count(tenantID string, f Filter) int {
	return s.items.Count(tenantID, f.match)
}

// ClearUserMemories deletes every memory a user holds in the tenant.
func (s *Store) ClearUserMemories(ctx context.Context, tenantID, userID string) (int, error) {
	n, err := s.items.DeleteWhere(ctx, tenantID, func(m *domain.MemoryItem) bool { return m.UserID == userID })
	if err != nil {
		return n, fmt.Errorf("clear memories of %s/%s: %w", tenantID, userID, err)
	}
	return n, nil
}

// Load adds persisted memories without writing them back.
func (s *Store) Load(items ...*domain.MemoryItem) {
	s.items.Load(items...)
}

func (f Filter) match(m *domain.MemoryItem) bool {
	if f.UserID != "" && m.UserID != f.UserID {
		return false
	}
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if len(f.Tags) > 0 && !m.HasAnyTag(f.Tags) {
		return false
	}
	if f.Query != "" && !strings.Contains(strings.ToLower(m.Content), strings.ToLower(f.Query)) {
		return false
	}
	return true
}

func ranksBefore(a, b *domain.MemoryItem) bool {
	if a.IsPinned != b.IsPinned {
		return a.IsPinned
	}
	if a.Importance != b.Importance {
		return a.Importance > b.Importance
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID < b.ID
}

func truncate(items []*domain.MemoryItem, limit, def int) []*domain.MemoryItem {
	if limit <= 0 {
		limit = def
	}
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
