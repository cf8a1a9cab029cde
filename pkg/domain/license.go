package domain

import (
	"maps"
	"time"
)

// LicenseType is the commercial tier of a license.
type LicenseType string

const (
	LicenseTrial        LicenseType = "trial"
	LicenseStandard     LicenseType = "standard"
	LicenseProfessional LicenseType = "professional"
	LicenseEnterprise   LicenseType = "enterprise"
)

// Valid returns true for a known license type.
func (t LicenseType) Valid() bool {
	switch t {
	case LicenseTrial, LicenseStandard, LicenseProfessional, LicenseEnterprise:
		return true
	}
	return false
}

// LicenseStatus is the lifecycle state of a license.
type LicenseStatus string

const (
	LicenseActive    LicenseStatus = "active"
	LicenseExpired   LicenseStatus = "expired"
	LicenseSuspended LicenseStatus = "suspended"
	LicenseRevoked   LicenseStatus = "revoked"
)

// License is a time-bounded entitlement for a tenant.
type License struct {
	ID               string          `json:"id"`
	TenantID         string          `json:"tenant_id"`
	Type             LicenseType     `json:"license_type"`
	Status           LicenseStatus   `json:"status"`
	MaxUsers         int             `json:"max_users"`
	MaxConversations int             `json:"max_conversations"`
	IssuedAt         time.Time       `json:"issued_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
	Features         map[string]bool `json:"features"`

	// Key is only handed out once, when the license is issued.
	Key string `json:"-"`
}

// IsValidAt reports whether the license is active and unexpired at now.
func (l *License) IsValidAt(now time.Time) bool {
	if l.Status != LicenseActive {
		return false
	}
	return now.Before(l.ExpiresAt)
}

// IsValid reports whether the license is valid right now.
func (l *License) IsValid() bool {
	return l.IsValidAt(time.Now())
}

// DaysRemainingAt returns the whole days left before expiry, or 0 when invalid.
func (l *License) DaysRemainingAt(now time.Time) int {
	if !l.IsValidAt(now) {
		return 0
	}
	return int(l.ExpiresAt.Sub(now) / (24 * time.Hour))
}

// DaysRemaining returns the whole days left before expiry.
func (l *License) DaysRemaining() int {
	return l.DaysRemainingAt(time.Now())
}

// IsFeatureEnabled returns true if the feature flag is set.
func (l *License) IsFeatureEnabled(feature string) bool {
	return l.Features[feature]
}

func (l *License) EntityID() string     { return l.ID }
func (l *License) EntityTenant() string { return l.TenantID }

// Clone returns a deep copy of the license.
func (l *License) Clone() *License {
	c := *l
	c.Features = maps.Clone(l.Features)
	return &c
}
