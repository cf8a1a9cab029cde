package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

type userRow struct {
	ID          string               `db:"id"`
	TenantID    string               `db:"tenant_id"`
	Name        string               `db:"name"`
	Email       string               `db:"email"`
	Permissions jsonColumn[[]string] `db:"permissions"`
	CreatedAt   time.Time            `db:"created_at"`
}

// UsersRepository handles user data persistence.
type UsersRepository struct {
	t table[*domain.User, userRow]
}

// NewUsersRepository creates a new users repository.
func NewUsersRepository(db *DB) *UsersRepository {
	return &UsersRepository{t: table[*domain.User, userRow]{
		db:      db,
		name:    "users",
		orderBy: "id",
		toRow: func(u *domain.User) map[string]any {
			return map[string]any{
				"id":          u.ID,
				"tenant_id":   u.TenantID,
				"name":        u.Name,
				"email":       u.Email,
				"permissions": jsonOf(nonNilStrings(u.Permissions)),
				"created_at":  u.CreatedAt,
			}
		},
		fromRow: func(r userRow) *domain.User {
			return &domain.User{
				ID:          r.ID,
				TenantID:    r.TenantID,
				Name:        r.Name,
				Email:       r.Email,
				Permissions: nonNilStrings(r.Permissions.V),
				CreatedAt:   r.CreatedAt,
			}
		},
	}}
}

// Save inserts or replaces a user.
func (r *UsersRepository) Save(ctx context.Context, user *domain.User) error {
	return r.t.save(ctx, user)
}

// Delete removes a user.
func (r *UsersRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

// GetByID retrieves a user by ID.
func (r *UsersRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.t.get(ctx, id, domain.ErrUserNotFound)
}

// List returns every user.
func (r *UsersRepository) List(ctx context.Context) ([]*domain.User, error) {
	return r.t.list(ctx, nil)
}

// ListByTenant returns the users of one tenant.
func (r *UsersRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.User, error) {
	return r.t.list(ctx, sq.Eq{"tenant_id": tenantID})
}
