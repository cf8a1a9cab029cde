// Package license issues and validates tenant licenses.
package license

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/isolation"
)

const (
	// DefaultKeyPrefix is used by GenerateKey when no prefix is given.
	DefaultKeyPrefix = "ENT"
	// DefaultDuration is the validity of a license created without Days.
	DefaultDuration = 365
)

// CreateParams describes a license to issue.
type CreateParams struct {
	TenantID         string
	Type             domain.LicenseType
	MaxUsers         int
	MaxConversations int
	Days             int
	Features         map[string]bool
}

// Engine owns every license and the key index used for activation.
type Engine struct {
	store *isolation.Store[*domain.License]

	mu   sync.RWMutex
	keys map[string]string // license key -> license id

	Clock clock.Clock
}

// NewEngine creates an engine. backend may be nil.
func NewEngine(backend isolation.Backend[*domain.License]) *Engine {
	return &Engine{
		store: isolation.New(backend),
		keys:  make(map[string]string),
		Clock: clock.New(),
	}
}

// GenerateKey returns PREFIX-<32 uppercase hex chars> built from 128 random bits.
func GenerateKey(prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate license key: %w", err)
	}
	return prefix + "-" + strings.ToUpper(hex.EncodeToString(b)), nil
}

// KeyPrefix returns the key prefix for a license type: its first three
// letters, upper-cased.
func KeyPrefix(t domain.LicenseType) string {
	s := string(t)
	if len(s) > 3 {
		s = s[:3]
	}
	return strings.ToUpper(s)
}

// Create issues an active license and returns it with its activation key.
func (e *Engine) Create(ctx context.Context, p CreateParams) (*domain.License, string, error) {
	if p.TenantID == "" {
		return nil, "", domain.ErrTenantRequired
	}
	if !p.Type.Valid() {
		return nil, "", domain.ErrInvalidLicenseType
	}
	if p.MaxUsers < 0 || p.MaxConversations < 0 || p.Days < 0 {
		return nil, "", domain.ErrInvalidLimit
	}
	days := p.Days
	if days == 0 {
		days = DefaultDuration
	}

	key, err := GenerateKey(KeyPrefix(p.Type))
	if err != nil {
		return nil, "", err
	}

	now := e.Clock.Now().UTC()
	features := make(map[string]bool, len(p.Features))
	for k, v := range p.Features {
		features[k] = v
	}
	lic := &domain.License{
		ID:               uuid.New().String(),
		TenantID:         p.TenantID,
		Type:             p.Type,
		Status:           domain.LicenseActive,
		MaxUsers:         p.MaxUsers,
		MaxConversations: p.MaxConversations,
		IssuedAt:         now,
		ExpiresAt:        now.Add(time.Duration(days) * 24 * time.Hour),
		Features:         features,
		Key:              key,
	}

	created, err := e.store.Upsert(ctx, lic.ID, func(*domain.License, bool) *domain.License { return lic })
	if err != nil {
		return nil, "", fmt.Errorf("save license: %w", err)
	}

	e.mu.Lock()
	e.keys[key] = lic.ID
	e.mu.Unlock()

	return created, key, nil
}

// Activate re-arms an expired license found by key. The expiry date is left
// alone, so a license past its expiry stays invalid. Suspended and revoked
// licenses are returned unchanged.
func (e *Engine) Activate(ctx context.Context, key string) (*domain.License, bool, error) {
	e.mu.RLock()
	id, ok := e.keys[key]
	e.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}

	lic, found := e.store.Get(id)
	if !found {
		return nil, false, nil
	}
	if lic.Status != domain.LicenseExpired {
		return lic, true, nil
	}

	lic, found, err := e.store.Mutate(ctx, id, func(l *domain.License) {
		if l.Status == domain.LicenseExpired {
			l.Status = domain.LicenseActive
		}
	})
	if err != nil {
		return nil, found, fmt.Errorf("activate license %s: %w", id, err)
	}
	return lic, found, nil
}

// Get returns the license with the given id.
func (e *Engine) Get(id string) (*domain.License, bool) {
	return e.store.Get(id)
}

// GetByTenant returns the tenant's valid license. When several are valid the
// most recently issued wins, and equal issue times fall back to the greater id.
func (e *Engine) GetByTenant(tenantID string) (*domain.License, bool) {
	now := e.Clock.Now()
	valid := e.store.Select(tenantID, func(l *domain.License) bool { return l.IsValidAt(now) })
	if len(valid) == 0 {
		return nil, false
	}
	best := valid[0]
	for _, l := range valid[1:] {
		if l.IssuedAt.After(best.IssuedAt) || (l.IssuedAt.Equal(best.IssuedAt) && l.ID > best.ID) {
			best = l
		}
	}
	return best, true
}

// IsValid reports whether the license exists and is valid now.
func (e *Engine) IsValid(id string) bool {
	lic, ok := e.store.Get(id)
	return ok && lic.IsValidAt(e.Clock.Now())
}

// DaysRemaining returns the whole days left on a license, 0 when unknown or invalid.
func (e *Engine) DaysRemaining(id string) int {
	lic, ok := e.store.Get(id)
	if !ok {
		return 0
	}
	return lic.DaysRemainingAt(e.Clock.Now())
}

// ValidateUsage reports whether the given usage fits the license. It fails
// closed: an unknown or invalid license never validates. Counts equal to a
// ceiling are allowed.
func (e *Engine) ValidateUsage(id string, users, conversations int) bool {
	lic, ok := e.store.Get(id)
	if !ok || !lic.IsValidAt(e.Clock.Now()) {
		return false
	}
	return users <= lic.MaxUsers && conversations <= lic.MaxConversations
}

// Revoke permanently revokes a license. It returns false for an unknown id.
func (e *Engine) Revoke(ctx context.Context, id string) (bool, error) {
	_, found, err := e.store.Mutate(ctx, id, func(l *domain.License) {
		l.Status = domain.LicenseRevoked
	})
	if err != nil {
		return found, fmt.Errorf("revoke license %s: %w", id, err)
	}
	return found, nil
}

// Suspend puts a license on hold. Revoked licenses stay revoked.
func (e *Engine) Suspend(ctx context.Context, id string) (bool, error) {
	_, found, err := e.store.Mutate(ctx, id, func(l *domain.License) {
		if l.Status != domain.LicenseRevoked {
			l.Status = domain.LicenseSuspended
		}
	})
	if err != nil {
		return found, fmt.Errorf("suspend license %s: %w", id, err)
	}
	return found, nil
}

// ExpireOverdue marks active licenses past their expiry as expired and
// returns how many changed.
func (e *Engine) ExpireOverdue(ctx context.Context) (int, error) {
	now := e.Clock.Now()
	overdue := e.store.SelectAll(func(l *domain.License) bool {
		return l.Status == domain.LicenseActive && !now.Before(l.ExpiresAt)
	})

	n := 0
	for _, l := range overdue {
		_, found, err := e.store.Mutate(ctx, l.ID, func(cur *domain.License) {
			if cur.Status == domain.LicenseActive {
				cur.Status = domain.LicenseExpired
			}
		})
		if err != nil {
			return n, fmt.Errorf("expire license %s: %w", l.ID, err)
		}
		if found {
			n++
		}
	}
	return n, nil
}

// List returns every license ordered by issue time.
func (e *Engine) List() []*domain.License {
	out := e.store.SelectAll(nil)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.Before(out[j].IssuedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// ListByTenant returns the tenant's licenses ordered by issue time.
func (e *Engine) ListByTenant(tenantID string) []*domain.License {
	out := e.store.Select(tenantID, nil)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.Before(out[j].IssuedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Load adds persisted licenses, restoring their activation keys.
func (e *Engine) Load(licenses ...*domain.License) {
	e.store.Load(licenses...)

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, l := range licenses {
		if l.Key != "" {
			e.keys[l.Key] = l.ID
		}
	}
}
