package domain

import (
	"slices"
	"time"
)

// MemoryType classifies how long a memory is meant to live.
type MemoryType string

const (
	MemoryLongTerm MemoryType = "long_term"
	MemoryDailyLog MemoryType = "daily_log"
	MemorySession  MemoryType = "session"
)

// Valid returns true for a known memory type.
func (t MemoryType) Valid() bool {
	switch t {
	case MemoryLongTerm, MemoryDailyLog, MemorySession:
		return true
	}
	return false
}

// MemoryItem is a tenant-owned piece of remembered content.
type MemoryItem struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	UserID         string     `json:"user_id,omitempty"`
	Content        string     `json:"content"`
	Type           MemoryType `json:"memory_type"`
	Tags           []string   `json:"tags"`
	Importance     int        `json:"importance"`
	IsPinned       bool       `json:"is_pinned"`
	Embedding      []float32  `json:"embedding,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastAccessedAt *time.Time `json:"last_accessed_at,omitempty"`
}

// HasAnyTag returns true if the item carries at least one of tags.
func (m *MemoryItem) HasAnyTag(tags []string) bool {
	return hasAny(m.Tags, tags)
}

func (m *MemoryItem) EntityID() string     { return m.ID }
func (m *MemoryItem) EntityTenant() string { return m.TenantID }

// Clone returns a deep copy of the memory item.
func (m *MemoryItem) Clone() *MemoryItem {
	c := *m
	c.Tags = slices.Clone(m.Tags)
	c.Embedding = slices.Clone(m.Embedding)
	if m.LastAccessedAt != nil {
		t := *m.LastAccessedAt
		c.LastAccessedAt = &t
	}
	return &c
}
