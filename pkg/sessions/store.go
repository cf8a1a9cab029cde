// Package sessions tracks conversation sessions and their messages.
package sessions

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/tendant/simple-tenancy/pkg/domain"
	"github.com/tendant/simple-tenancy/pkg/isolation"
)

const DefaultListLimit = 100

// MessageBackend persists messages. Deleting a session through the session
// backend is expected to remove its messages too.
type MessageBackend interface {
	SaveMessage(ctx context.Context, m *domain.Message) error
}

// CreateParams describes a new session. An empty ID gets a random one.
type CreateParams struct {
	ID       string
	TenantID string
	UserID   string
	Channel  string
}

// Patch changes a session's status or metadata. Nil fields are left alone.
type Patch struct {
	Status   *domain.SessionStatus
	Metadata *map[string]any
}

// Filter narrows List and Count. Empty fields match everything.
type Filter struct {
	UserID string
	Status domain.SessionStatus
	Limit  int
	Offset int
}

// Store holds sessions per tenant and the messages of each session.
type Store struct {
	sessions *isolation.Store[*domain.Session]

	mu       sync.RWMutex
	messages map[string][]*domain.Message
	msgStore MessageBackend

	Clock clock.Clock
}

// NewStore creates a session store. Both backends may be nil.
func NewStore(backend isolation.Backend[*domain.Session], messages MessageBackend) *Store {
	return &Store{
		sessions: isolation.New(backend),
		messages: make(map[string][]*domain.Message),
		msgStore: messages,
		Clock:    clock.New(),
	}
}

// Create opens a session. Creating an id that already exists returns the
// existing session, unless it belongs to another tenant.
func (s *Store) Create(ctx context.Context, p CreateParams) (*domain.Session, error) {
	if p.TenantID == "" {
		return nil, domain.ErrTenantRequired
	}
	id := p.ID
	if id == "" {
		id = uuid.New().String()
	}

	now := s.Clock.Now().UTC()
	var mismatch bool
	session, err := s.sessions.Upsert(ctx, id, func(existing *domain.Session, found bool) *domain.Session {
		if found {
			mismatch = existing.TenantID != p.TenantID
			return existing
		}
		return &domain.Session{
			ID:        id,
			TenantID:  p.TenantID,
			UserID:    p.UserID,
			Channel:   p.Channel,
			Status:    domain.SessionActive,
			Metadata:  map[string]any{},
			CreatedAt: now,
			UpdatedAt: now,
		}
	})
	if err != nil {
		return nil, fmt.Errorf("save session %s: %w", id, err)
	}
	if mismatch {
		return nil, domain.ErrTenantMismatch
	}
	return session, nil
}

// Get returns a session by id regardless of tenant.
func (s *Store) Get(id string) (*domain.Session, bool) {
	return s.sessions.Get(id)
}

// Update applies patch. Closing a session stamps ClosedAt; reopening clears it.
func (s *Store) Update(ctx context.Context, id string, patch Patch) (bool, error) {
	if patch.Status != nil && !patch.Status.Valid() {
		return false, domain.ErrInvalidStatus
	}
	now := s.Clock.Now().UTC()
	_, found, err := s.sessions.Mutate(ctx, id, func(sess *domain.Session) {
		if patch.Status != nil && *patch.Status != sess.Status {
			sess.Status = *patch.Status
			if sess.Status == domain.SessionClosed {
				sess.ClosedAt = &now
			} else {
				sess.ClosedAt = nil
			}
		}
		if patch.Metadata != nil {
			sess.Metadata = domain.CloneMap(*patch.Metadata)
			if sess.Metadata == nil {
				sess.Metadata = map[string]any{}
			}
		}
		sess.UpdatedAt = now
	})
	if err != nil {
		return found, fmt.Errorf("update session %s: %w", id, err)
	}
	return found, nil
}

// Delete removes a session and its messages.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, found, err := s.sessions.Delete(ctx, id)
	if err != nil {
		return found, fmt.Errorf("delete session %s: %w", id, err)
	}
	delete(s.messages, id)
	return found, nil
}

// List returns the tenant's sessions matching f, oldest first.
func (s *Store) List(tenantID string, f Filter) []*domain.Session {
	results := s.sessions.Select(tenantID, f.match)
	sort.Slice(results, func(i, j int) bool {
		if !results[i].CreatedAt.Equal(results[j].CreatedAt) {
			return results[i].CreatedAt.Before(results[j].CreatedAt)
		}
		return results[i].ID < results[j].ID
	})

	if f.Offset > 0 {
		if f.Offset >= len(results) {
			return []*domain.Session{}
		}
		results = results[f.Offset:]
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results
}

// Count returns how many of the tenant's sessions match f, ignoring paging.
func (s *Store) Count(tenantID string, f Filter) int {
	return s.sessions.Count(tenantID, f.match)
}

// AppendMessage adds a message to an open session.
func (s *Store) AppendMessage(ctx context.Context, sessionID string, role domain.MessageRole, content string, metadata map[string]any) (*domain.Message, bool, error) {
	if !role.Valid() {
		return nil, false, domain.ErrInvalidRole
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, false, nil
	}
	if !session.IsOpen() {
		return nil, true, domain.ErrSessionClosed
	}

	now := s.Clock.Now().UTC()
	msg := &domain.Message{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Metadata:  domain.CloneMap(metadata),
		CreatedAt: now,
	}
	if s.msgStore != nil {
		if err := s.msgStore.SaveMessage(ctx, msg); err != nil {
			return nil, true, fmt.Errorf("save message: %w", err)
		}
	}
	s.messages[sessionID] = append(s.messages[sessionID], msg)

	_, _, err := s.sessions.Mutate(ctx, sessionID, func(sess *domain.Session) {
		sess.MessagesCount++
		sess.UpdatedAt = now
	})
	if err != nil {
		return msg.Clone(), true, fmt.Errorf("update session %s: %w", sessionID, err)
	}
	return msg.Clone(), true, nil
}

// Messages returns the session's messages in order. With a positive limit
// only the most recent limit messages are returned.
func (s *Store) Messages(sessionID string, limit int) []*domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*domain.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Clone())
	}
	return out
}

// Load adds persisted sessions without writing them back.
func (s *Store) Load(sessions ...*domain.Session) {
	s.sessions.Load(sessions...)
}

// LoadMessages adds persisted messages, keeping each session's messages in
// creation order.
func (s *Store) LoadMessages(msgs ...*domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]struct{})
	for _, m := range msgs {
		s.messages[m.SessionID] = append(s.messages[m.SessionID], m.Clone())
		touched[m.SessionID] = struct{}{}
	}
	for id := range touched {
		list := s.messages[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })
	}
}

func (f Filter) match(sess *domain.Session) bool {
	if f.UserID != "" && sess.UserID != f.UserID {
		return false
	}
	if f.Status != "" && sess.Status != f.Status {
		return false
	}
	return true
}
