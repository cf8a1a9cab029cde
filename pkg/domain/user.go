package domain

import (
	"slices"
	"time"
)

// User represents an account that belongs to exactly one tenant.
type User struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

// HasPermission returns true if the user holds the permission.
func (u *User) HasPermission(permission string) bool {
	return slices.Contains(u.Permissions, permission)
}

func (u *User) EntityID() string     { return u.ID }
func (u *User) EntityTenant() string { return u.TenantID }

// Clone returns a deep copy of the user.
func (u *User) Clone() *User {
	c := *u
	c.Permissions = slices.Clone(u.Permissions)
	return &c
}
