package domain

import (
	"time"
)

// SessionStatus represents the state of a conversation session.
type SessionStatus string

const (
	SessionActive SessionStatus = "active"
	SessionClosed SessionStatus = "closed"
)

// Valid returns true for a known session status.
func (s SessionStatus) Valid() bool {
	return s == SessionActive || s == SessionClosed
}

// Session represents a conversation between a user and the agent.
type Session struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenant_id"`
	UserID        string         `json:"user_id"`
	Channel       string         `json:"channel,omitempty"`
	Status        SessionStatus  `json:"status"`
	MessagesCount int            `json:"messages_count"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	ClosedAt      *time.Time     `json:"closed_at,omitempty"`
}

// IsOpen returns true if messages may still be appended.
func (s *Session) IsOpen() bool {
	return s.Status == SessionActive
}

func (s *Session) EntityID() string     { return s.ID }
func (s *Session) EntityTenant() string { return s.TenantID }

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	c := *s
	c.Metadata = CloneMap(s.Metadata)
	if s.ClosedAt != nil {
		t := *s.ClosedAt
		c.ClosedAt = &t
	}
	return &c
}

// MessageRole identifies the author of a message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleSystem    MessageRole = "system"
)

// Valid returns true for a known role.
func (r MessageRole) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// Message is a single turn within a session.
type Message struct {
	ID        string         `json:"id"`
	SessionID string         `json:"session_id"`
	Role      MessageRole    `json:"role"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Clone returns a deep copy of the message.
func (m *Message) Clone() *Message {
	c := *m
	c.Metadata = CloneMap(m.Metadata)
	return &c
}
