package repository

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

type memoryRow struct {
	ID             string                `db:"id"`
	TenantID       string                `db:"tenant_id"`
	UserID         string                `db:"user_id"`
	Content        string                `db:"content"`
	Type           string                `db:"memory_type"`
	Tags           jsonColumn[[]string]  `db:"tags"`
	Importance     int                   `db:"importance"`
	IsPinned       bool                  `db:"is_pinned"`
	Embedding      jsonColumn[[]float32] `db:"embedding"`
	CreatedAt      time.Time             `db:"created_at"`
	UpdatedAt      time.Time             `db:"updated_at"`
	LastAccessedAt *time.Time            `db:"last_accessed_at"`
}

// MemoriesRepository persists memory items.
type MemoriesRepository struct {
	t table[*domain.MemoryItem, memoryRow]
}

// NewMemoriesRepository creates a new memories repository.
func NewMemoriesRepository(db *DB) *MemoriesRepository {
	return &MemoriesRepository{t: table[*domain.MemoryItem, memoryRow]{
		db:      db,
		name:    "memories",
		orderBy: "created_at, id",
		toRow: func(m *domain.MemoryItem) map[string]any {
			return map[string]any{
				"id":               m.ID,
				"tenant_id":        m.TenantID,
				"user_id":          m.UserID,
				"content":          m.Content,
				"memory_type":      string(m.Type),
				"tags":             jsonOf(nonNilStrings(m.Tags)),
				"importance":       m.Importance,
				"is_pinned":        m.IsPinned,
				"embedding":        jsonOf(m.Embedding),
				"created_at":       m.CreatedAt,
				"updated_at":       m.UpdatedAt,
				"last_accessed_at": m.LastAccessedAt,
			}
		},
		fromRow: func(r memoryRow) *domain.MemoryItem {
			return &domain.MemoryItem{
				ID:             r.ID,
				TenantID:       r.TenantID,
				UserID:         r.UserID,
				Content:        r.Content,
				Type:           domain.MemoryType(r.Type),
				Tags:           nonNilStrings(r.Tags.V),
				Importance:     r.Importance,
				IsPinned:       r.IsPinned,
				Embedding:      r.Embedding.V,
				CreatedAt:      r.CreatedAt,
				UpdatedAt:      r.UpdatedAt,
				LastAccessedAt: r.LastAccessedAt,
			}
		},
	}}
}

// Save inserts or replaces a memory.
func (r *MemoriesRepository) Save(ctx context.Context, item *domain.MemoryItem) error {
	return r.t.save(ctx, item)
}

// Delete removes a memory.
func (r *MemoriesRepository) Delete(ctx context.Context, id string) error {
	return r.t.delete(ctx, id)
}

// GetByID retrieves a memory by ID.
func (r *MemoriesRepository) GetByID(ctx context.Context, id string) (*domain.MemoryItem, error) {
	return r.t.get(ctx, id, domain.ErrMemoryNotFound)
}

// List returns every memory.
func (r *MemoriesRepository) List(ctx context.Context) ([]*domain.MemoryItem, error) {
	return r.t.list(ctx, nil)
}

// ListByUser returns a user's memories of one type, or of every type when
// memoryType is empty.
func (r *MemoriesRepository) ListByUser(ctx context.Context, tenantID, userID string, memoryType domain.MemoryType) ([]*domain.MemoryItem, error) {
	where := sq.Eq{"tenant_id": tenantID, "user_id": userID}
	if memoryType != "" {
		where["memory_type"] = string(memoryType)
	}
	return r.t.list(ctx, where)
}
