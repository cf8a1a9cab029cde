// Package isolation provides a tenant-partitioned in-memory store.
//
// Every entity lives in a primary map keyed by id and in a per-tenant index.
// Tenant-scoped reads walk the tenant index only; the full collection is
// reached through SelectAll, which callers use for explicitly cross-tenant
// queries such as public skill listings.
//
// Readers always receive clones, and writers swap in fully built values, so
// a concurrent reader never sees a half-applied update. When a Backend is
// configured it is called inside the same critical section before the maps
// change; a backend error leaves the store untouched.
package isolation

import (
	"context"
	"sync"
)

// Entity is a tenant-owned value that can copy itself.
type Entity[T any] interface {
	EntityID() string
	EntityTenant() string
	Clone() T
}

// Backend mirrors store writes to durable storage.
type Backend[T any] interface {
	Save(ctx context.Context, item T) error
	Delete(ctx context.Context, id string) error
}

// Store is a tenant-partitioned collection of entities.
type Store[T Entity[T]] struct {
	mu      sync.RWMutex
	items   map[string]T
	tenants map[string]map[string]struct{}
	backend Backend[T]
}

// New creates an empty store. backend may be nil.
func New[T Entity[T]](backend Backend[T]) *Store[T] {
	return &Store[T]{
		items:   make(map[string]T),
		tenants: make(map[string]map[string]struct{}),
		backend: backend,
	}
}

// Load inserts items without touching the backend. Used for hydration.
func (s *Store[T]) Load(items ...T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		s.insertLocked(item.Clone())
	}
}

// Upsert builds the value stored under id. build receives a clone of the
// current value, if any, and returns the value to store.
func (s *Store[T]) Upsert(ctx context.Context, id string, build func(existing T, found bool) T) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing T
	current, found := s.items[id]
	if found {
		existing = current.Clone()
	}
	next := build(existing, found)

	if s.backend != nil {
		if err := s.backend.Save(ctx, next); err != nil {
			var zero T
			return zero, err
		}
	}
	s.insertLocked(next)
	return next.Clone(), nil
}

// Get returns a copy of the entity with the given id, ignoring tenants.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	return item.Clone(), true
}

// Access applies fn to the stored entity in place and returns a copy.
// The change is not sent to the backend.
func (s *Store[T]) Access(id string, fn func(T)) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		var zero T
		return zero, false
	}
	fn(item)
	return item.Clone(), true
}

// Mutate applies fn to a copy of the entity and swaps it in once persisted.
// fn must not change the entity's id or tenant.
func (s *Store[T]) Mutate(ctx context.Context, id string, fn func(T)) (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	current, ok := s.items[id]
	if !ok {
		return zero, false, nil
	}
	next := current.Clone()
	fn(next)

	if s.backend != nil {
		if err := s.backend.Save(ctx, next); err != nil {
			return zero, true, err
		}
	}
	s.items[id] = next
	return next.Clone(), true, nil
}

// Delete removes the entity and returns the removed value.
func (s *Store[T]) Delete(ctx context.Context, id string) (T, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	item, ok := s.items[id]
	if !ok {
		return zero, false, nil
	}
	if s.backend != nil {
		if err := s.backend.Delete(ctx, id); err != nil {
			return zero, true, err
		}
	}
	s.removeLocked(item)
	return item, true, nil
}

// DeleteWhere removes every entity of tenantID matching pred and returns how
// many were removed. On a backend error the entities removed so far stay
// removed.
func (s *Store[T]) DeleteWhere(ctx context.Context, tenantID string, pred func(T) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id := range s.tenants[tenantID] {
		item := s.items[id]
		if !pred(item) {
			continue
		}
		if s.backend != nil {
			if err := s.backend.Delete(ctx, id); err != nil {
				return deleted, err
			}
		}
		s.removeLocked(item)
		deleted++
	}
	return deleted, nil
}

// Select returns copies of the tenant's entities matching pred.
// A nil pred matches everything.
func (s *Store[T]) Select(tenantID string, pred func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.tenants[tenantID]
	out := make([]T, 0, len(ids))
	for id := range ids {
		item := s.items[id]
		if pred == nil || pred(item) {
			out = append(out, item.Clone())
		}
	}
	return out
}

// SelectAll scans every tenant. Only cross-tenant queries should use it.
func (s *Store[T]) SelectAll(pred func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]T, 0)
	for _, item := range s.items {
		if pred == nil || pred(item) {
			out = append(out, item.Clone())
		}
	}
	return out
}

// Count returns the number of the tenant's entities matching pred.
func (s *Store[T]) Count(tenantID string, pred func(T) bool) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if pred == nil {
		return len(s.tenants[tenantID])
	}
	n := 0
	for id := range s.tenants[tenantID] {
		if pred(s.items[id]) {
			n++
		}
	}
	return n
}

// Len returns the number of entities across all tenants.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[T]) insertLocked(item T) {
	id := item.EntityID()
	if prev, ok := s.items[id]; ok && prev.EntityTenant() != item.EntityTenant() {
		s.unindexLocked(prev.EntityTenant(), id)
	}
	s.items[id] = item

	tenant := item.EntityTenant()
	ids, ok := s.tenants[tenant]
	if !ok {
		ids = make(map[string]struct{})
		s.tenants[tenant] = ids
	}
	ids[id] = struct{}{}
}

func (s *Store[T]) removeLocked(item T) {
	id := item.EntityID()
	delete(s.items, id)
	s.unindexLocked(item.EntityTenant(), id)
}

func (s *Store[T]) unindexLocked(tenant, id string) {
	ids := s.tenants[tenant]
	delete(ids, id)
	if len(ids) == 0 {
		delete(s.tenants, tenant)
	}
}
