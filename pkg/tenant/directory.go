// Package tenant keeps the directory of customer organizations.
package tenant

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

// Backend persists tenants.
type Backend interface {
	Save(ctx context.Context, t *domain.Tenant) error
	Delete(ctx context.Context, id string) error
}

// Directory holds every tenant keyed by id.
type Directory struct {
	mu      sync.RWMutex
	tenants map[string]*domain.Tenant
	backend Backend

	Clock clock.Clock
}

// NewDirectory creates an empty directory. backend may be nil.
func NewDirectory(backend Backend) *Directory {
	return &Directory{
		tenants: make(map[string]*domain.Tenant),
		backend: backend,
		Clock:   clock.New(),
	}
}

// Create stores t under t.ID, replacing any tenant with the same id.
// CreatedAt of the replaced tenant is kept.
func (d *Directory) Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	if t.ID == "" {
		return nil, domain.ErrIDRequired
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.Clock.Now().UTC()
	next := t.Clone()
	next.CreatedAt = now
	if prev, ok := d.tenants[t.ID]; ok {
		next.CreatedAt = prev.CreatedAt
	}
	next.UpdatedAt = now
	if next.Settings == nil {
		next.Settings = map[string]any{}
	}
	if next.Features == nil {
		next.Features = map[string]bool{}
	}

	if err := d.saveLocked(ctx, next); err != nil {
		return nil, err
	}
	return next.Clone(), nil
}

// Get returns the tenant with the given id.
func (d *Directory) Get(id string) (*domain.Tenant, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tenants[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Update replaces an existing tenant's configuration. The id in the path
// always wins over t.ID. It returns false when the tenant does not exist.
func (d *Directory) Update(ctx context.Context, id string, t *domain.Tenant) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prev, ok := d.tenants[id]
	if !ok {
		return false, nil
	}
	next := t.Clone()
	next.ID = id
	next.CreatedAt = prev.CreatedAt
	next.UpdatedAt = d.Clock.Now().UTC()
	if next.Settings == nil {
		next.Settings = map[string]any{}
	}
	if next.Features == nil {
		next.Features = map[string]bool{}
	}

	if err := d.saveLocked(ctx, next); err != nil {
		return true, err
	}
	return true, nil
}

// Delete removes a tenant. It returns false when the tenant does not exist.
func (d *Directory) Delete(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.tenants[id]; !ok {
		return false, nil
	}
	if d.backend != nil {
		if err := d.backend.Delete(ctx, id); err != nil {
			return true, fmt.Errorf("delete tenant %s: %w", id, err)
		}
	}
	delete(d.tenants, id)
	return true, nil
}

// List returns all tenants ordered by id.
func (d *Directory) List() []*domain.Tenant {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]*domain.Tenant, 0, len(d.tenants))
	for _, t := range d.tenants {
		out = append(out, t.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load adds tenants read from storage without writing them back.
func (d *Directory) Load(tenants ...*domain.Tenant) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range tenants {
		d.tenants[t.ID] = t.Clone()
	}
}

func (d *Directory) saveLocked(ctx context.Context, t *domain.Tenant) error {
	if d.backend != nil {
		if err := d.backend.Save(ctx, t); err != nil {
			return fmt.Errorf("save tenant %s: %w", t.ID, err)
		}
	}
	d.tenants[t.ID] = t
	return nil
}
