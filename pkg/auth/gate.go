// Package auth resolves request identities to users pinned to a tenant.
//
// The gate does not verify credentials. Callers hand it a user id and a
// tenant id that an upstream layer has already established, and the gate
// confirms that the pair is consistent and that the tenant is switched on.
package auth

import (
	"context"
	"fmt"
	"sort"

	"github.com/benbjohnson/clock"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/isolation"
)

// TenantLookup finds tenants by id.
type TenantLookup interface {
	Get(id string) (*domain.Tenant, bool)
}

// Gate owns the user registry and authenticates (user, tenant) pairs.
type Gate struct {
	tenants TenantLookup
	users   *isolation.Store[*domain.User]

	Clock clock.Clock
}

// NewGate creates a gate over the tenant directory. backend may be nil.
func NewGate(tenants TenantLookup, backend isolation.Backend[*domain.User]) *Gate {
	return &Gate{
		tenants: tenants,
		users:   isolation.New(backend),
		Clock:   clock.New(),
	}
}

// RegisterUser adds or replaces a user. A user id stays pinned to the tenant
// it was first registered under; re-registering it elsewhere returns
// domain.ErrTenantMismatch.
func (g *Gate) RegisterUser(ctx context.Context, u *domain.User) (*domain.User, error) {
	if u.ID == "" {
		return nil, domain.ErrIDRequired
	}
	if u.TenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	if _, ok := g.tenants.Get(u.TenantID); !ok {
		return nil, domain.ErrTenantNotFound
	}
	email := NormalizeEmail(u.Email)
	if email != "" {
		if err := ValidateEmail(email); err != nil {
			return nil, err
		}
	}

	var mismatch bool
	saved, err := g.users.Upsert(ctx, u.ID, func(existing *domain.User, found bool) *domain.User {
		next := u.Clone()
		next.Name = SanitizeName(u.Name)
		next.Email = email
		next.Permissions = NormalizePermissions(u.Permissions)
		next.CreatedAt = g.Clock.Now().UTC()
		if found {
			if existing.TenantID != u.TenantID {
				mismatch = true
				return existing
			}
			next.CreatedAt = existing.CreatedAt
		}
		return next
	})
	if err != nil {
		return nil, fmt.Errorf("save user %s: %w", u.ID, err)
	}
	if mismatch {
		return nil, domain.ErrTenantMismatch
	}
	return saved, nil
}

// GetUser returns a user by id regardless of tenant.
func (g *Gate) GetUser(id string) (*domain.User, bool) {
	return g.users.Get(id)
}

// Authenticate returns the user when it exists, belongs to tenantID, and the
// tenant exists and is active.
func (g *Gate) Authenticate(userID, tenantID string) (*domain.User, bool) {
	user, ok := g.users.Get(userID)
	if !ok || user.TenantID != tenantID {
		return nil, false
	}
	tenant, ok := g.tenants.Get(tenantID)
	if !ok || !tenant.IsActive() {
		return nil, false
	}
	return user, true
}

// CheckPermission reports whether the user holds the permission.
func CheckPermission(u *domain.User, permission string) bool {
	return u.HasPermission(permission)
}

// CountUsers returns the number of users registered under the tenant.
func (g *Gate) CountUsers(tenantID string) int {
	return g.users.Count(tenantID, nil)
}

// ListUsers returns the tenant's users ordered by id.
func (g *Gate) ListUsers(tenantID string) []*domain.User {
	users := g.users.Select(tenantID, nil)
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users
}

// DeleteUser removes a user. It returns false for an unknown id.
func (g *Gate) DeleteUser(ctx context.Context, id string) (bool, error) {
	_, found, err := g.users.Delete(ctx, id)
	if err != nil {
		return found, fmt.Errorf("delete user %s: %w", id, err)
	}
	return found, nil
}

// LoadUsers adds persisted users without writing them back.
func (g *Gate) LoadUsers(users ...*domain.User) {
	g.users.Load(users...)
}
