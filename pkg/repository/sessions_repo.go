package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

type sessionRow struct {
	ID            string                     `db:"id"`
	TenantID      string                     `db:"tenant_id"`
	UserID        string                     `db:"user_id"`
	Channel       string                     `db:"channel"`
	Status        string                     `db:"status"`
	MessagesCount int                        `db:"messages_count"`
	Metadata      jsonColumn[map[string]any] `db:"metadata"`
	CreatedAt     time.Time                  `db:"created_at"`
	UpdatedAt     time.Time                  `db:"updated_at"`
	ClosedAt      *time.Time                 `db:"closed_at"`
}

type messageRow struct {
	ID        string                     `db:"id"`
	SessionID string                     `db:"session_id"`
	Role      string                     `db:"role"`
	Content   string                     `db:"content"`
	Metadata  jsonColumn[map[string]any] `db:"metadata"`
	CreatedAt time.Time                  `db:"created_at"`
}

// SessionsRepository handles session and message persistence. Deleting a
// session cascades to its messages.
type SessionsRepository struct {
	sessions table[*domain.Session, sessionRow]
	messages table[*domain.Message, messageRow]
}

// NewSessionsRepository creates a new sessions repository.
func NewSessionsRepository(db *DB) *SessionsRepository {
	return &SessionsRepository{
		sessions: table[*domain.Session, sessionRow]{
			db:      db,
			name:    "sessions",
			orderBy: "created_at, id",
			toRow: func(s *domain.Session) map[string]any {
				return map[string]any{
					"id":             s.ID,
					"tenant_id":      s.TenantID,
					"user_id":        s.UserID,
					"channel":        s.Channel,
					"status":         string(s.Status),
					"messages_count": s.MessagesCount,
					"metadata":       jsonOf(nonNilMap(s.Metadata)),
					"created_at":     s.CreatedAt,
					"updated_at":     s.UpdatedAt,
					"closed_at":      s.ClosedAt,
				}
			},
			fromRow: func(r sessionRow) *domain.Session {
				return &domain.Session{
					ID:            r.ID,
					TenantID:      r.TenantID,
					UserID:        r.UserID,
					Channel:       r.Channel,
					Status:        domain.SessionStatus(r.Status),
					MessagesCount: r.MessagesCount,
					Metadata:      nonNilMap(r.Metadata.V),
					CreatedAt:     r.CreatedAt,
					UpdatedAt:     r.UpdatedAt,
					ClosedAt:      r.ClosedAt,
				}
			},
		},
		messages: table[*domain.Message, messageRow]{
			db:      db,
			name:    "messages",
			orderBy: "created_at, id",
			toRow: func(m *domain.Message) map[string]any {
				return map[string]any{
					"id":         m.ID,
					"session_id": m.SessionID,
					"role":       string(m.Role),
					"content":    m.Content,
					"metadata":   jsonOf(nonNilMap(m.Metadata)),
					"created_at": m.CreatedAt,
				}
			},
			fromRow: func(r messageRow) *domain.Message {
				return &domain.Message{
					ID:        r.ID,
					SessionID: r.SessionID,
					Role:      domain.MessageRole(r.Role),
					Content:   r.Content,
					Metadata:  r.Metadata.V,
					CreatedAt: r.CreatedAt,
				}
			},
		},
	}
}

// Save inserts or replaces a session.
func (r *SessionsRepository) Save(ctx context.Context, session *domain.Session) error {
	return r.sessions.save(ctx, session)
}

// Delete removes a session and its messages.
func (r *SessionsRepository) Delete(ctx context.Context, id string) error {
	return r.sessions.delete(ctx, id)
}

// GetByID retrieves a session by ID.
func (r *SessionsRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	return r.sessions.get(ctx, id, domain.ErrSessionNotFound)
}

// List returns every session.
func (r *SessionsRepository) List(ctx context.Context) ([]*domain.Session, error) {
	return r.sessions.list(ctx, nil)
}

// SaveMessage stores a message of an existing session.
func (r *SessionsRepository) SaveMessage(ctx context.Context, m *domain.Message) error {
	return r.messages.save(ctx, m)
}

// ListMessages returns every stored message, or the messages of one session
// when sessionID is set.
func (r *SessionsRepository) ListMessages(ctx context.Context, sessionID string) ([]*domain.Message, error) {
	if sessionID == "" {
		return r.messages.list(ctx, nil)
	}
	return r.messages.list(ctx, sq.Eq{"session_id": sessionID})
}
