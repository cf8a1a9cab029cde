package domain

import (
	"maps"
	"time"
)

// SettingActive is the settings key that switches a tenant on or off.
const SettingActive = "active"

// Tenant represents an isolated customer organization.
type Tenant struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	LLMProvider string          `json:"llm_provider,omitempty"`
	LLMModel    string          `json:"llm_model,omitempty"`
	Settings    map[string]any  `json:"settings"`
	Features    map[string]bool `json:"features"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// IsActive reports whether the tenant may authenticate users.
// A missing "active" setting means active; other values follow truthiness.
func (t *Tenant) IsActive() bool {
	v, ok := t.Settings[SettingActive]
	if !ok {
		return true
	}
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// IsFeatureEnabled returns true if the tenant has the named feature switched on.
func (t *Tenant) IsFeatureEnabled(feature string) bool {
	return t.Features[feature]
}

// Clone returns a deep copy of the tenant.
func (t *Tenant) Clone() *Tenant {
	c := *t
	c.Settings = CloneMap(t.Settings)
	c.Features = maps.Clone(t.Features)
	return &c
}
