package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-tenancy/pkg/domain"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{Dialect: SQLite, DSN: filepath.Join(t.TempDir(), "data", "tenancy.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))
	return db
}

var stamp = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func TestOpen_UnsupportedDialect(t *testing.T) {
	_, err := Open(context.Background(), Config{Dialect: "mysql"})
	assert.Error(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	assert.NoError(t, db.Migrate(context.Background()))
	assert.Equal(t, SQLite, db.Dialect())
}

func TestTenantsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTenantsRepository(openTestDB(t))

	tenant := &domain.Tenant{
		ID:          "acme",
		Name:        "Acme",
		LLMProvider: "openai",
		Settings:    map[string]any{"active": true, "region": "eu"},
		Features:    map[string]bool{"memory": true},
		CreatedAt:   stamp,
		UpdatedAt:   stamp,
	}
	require.NoError(t, repo.Save(ctx, tenant))

	got, err := repo.GetByID(ctx, "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme", got.Name)
	assert.Equal(t, "openai", got.LLMProvider)
	assert.Equal(t, map[string]any{"active": true, "region": "eu"}, got.Settings)
	assert.True(t, got.Features["memory"])
	assert.True(t, got.CreatedAt.Equal(stamp))

	tenant.Name = "Acme Corp"
	tenant.Settings = nil
	require.NoError(t, repo.Save(ctx, tenant))
	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Acme Corp", all[0].Name)
	assert.Empty(t, all[0].Settings)
	assert.NotNil(t, all[0].Settings)

	require.NoError(t, repo.Delete(ctx, "acme"))
	require.NoError(t, repo.Delete(ctx, "acme"))
	_, err = repo.GetByID(ctx, "acme")
	assert.ErrorIs(t, err, domain.ErrTenantNotFound)
}

func TestUsersRepository_ListByTenant(t *testing.T) {
	ctx := context.Background()
	repo := NewUsersRepository(openTestDB(t))

	for _, u := range []*domain.User{
		{ID: "u2", TenantID: "acme", Name: "Bo", Permissions: []string{"admin"}, CreatedAt: stamp},
		{ID: "u1", TenantID: "acme", Name: "Al", Email: "al@acme.io", CreatedAt: stamp},
		{ID: "u3", TenantID: "globex", Name: "Cy", CreatedAt: stamp},
	} {
		require.NoError(t, repo.Save(ctx, u))
	}

	users, err := repo.ListByTenant(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "u1", users[0].ID)
	assert.Equal(t, "al@acme.io", users[0].Email)
	assert.Equal(t, []string{}, users[0].Permissions)
	assert.Equal(t, []string{"admin"}, users[1].Permissions)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestLicensesRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewLicensesRepository(openTestDB(t))

	lic := &domain.License{
		ID:               "lic-1",
		TenantID:         "acme",
		Key:              "PRO-0123456789ABCDEF0123456789ABCDEF",
		Type:             domain.LicenseProfessional,
		Status:           domain.LicenseActive,
		MaxUsers:         10,
		MaxConversations: 100,
		IssuedAt:         stamp,
		ExpiresAt:        stamp.AddDate(0, 0, 30),
		Features:         map[string]bool{"skills": true},
	}
	require.NoError(t, repo.Save(ctx, lic))

	got, err := repo.GetByID(ctx, "lic-1")
	require.NoError(t, err)
	assert.Equal(t, lic.Key, got.Key)
	assert.Equal(t, domain.LicenseProfessional, got.Type)
	assert.Equal(t, 100, got.MaxConversations)
	assert.True(t, got.ExpiresAt.Equal(lic.ExpiresAt))

	lic.Status = domain.LicenseRevoked
	require.NoError(t, repo.Save(ctx, lic))
	byTenant, err := repo.ListByTenant(ctx, "acme")
	require.NoError(t, err)
	require.Len(t, byTenant, 1)
	assert.Equal(t, domain.LicenseRevoked, byTenant[0].Status)

	dup := lic.Clone()
	dup.ID = "lic-2"
	assert.Error(t, repo.Save(ctx, dup), "license keys are unique")
}

func TestMemoriesRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoriesRepository(openTestDB(t))

	accessed := stamp.Add(time.Hour)
	items := []*domain.MemoryItem{
		{
			ID: "m1", TenantID: "acme", UserID: "u1", Content: "likes tea",
			Type: domain.MemoryLongTerm, Tags: []string{"pref"}, Importance: 7, IsPinned: true,
			Embedding: []float32{0.5, -1}, CreatedAt: stamp, UpdatedAt: stamp, LastAccessedAt: &accessed,
		},
		{
			ID: "m2", TenantID: "acme", UserID: "u1", Content: "met bob",
			Type: domain.MemoryDailyLog, CreatedAt: stamp.Add(time.Minute), UpdatedAt: stamp,
		},
	}
	for _, m := range items {
		require.NoError(t, repo.Save(ctx, m))
	}

	got, err := repo.GetByID(ctx, "m1")
	require.NoError(t, err)
	assert.True(t, got.IsPinned)
	assert.Equal(t, 7, got.Importance)
	assert.Equal(t, []float32{0.5, -1}, got.Embedding)
	require.NotNil(t, got.LastAccessedAt)
	assert.True(t, got.LastAccessedAt.Equal(accessed))

	logs, err := repo.ListByUser(ctx, "acme", "u1", domain.MemoryDailyLog)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "m2", logs[0].ID)
	assert.Nil(t, logs[0].Embedding)
	assert.Nil(t, logs[0].LastAccessedAt)
	assert.Equal(t, []string{}, logs[0].Tags)

	everything, err := repo.ListByUser(ctx, "acme", "u1", "")
	require.NoError(t, err)
	assert.Len(t, everything, 2)

	require.NoError(t, repo.Delete(ctx, "m1"))
	_, err = repo.GetByID(ctx, "m1")
	assert.ErrorIs(t, err, domain.ErrMemoryNotFound)
}

func TestSkillsRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewSkillsRepository(openTestDB(t))

	skill := &domain.Skill{
		ID: "s1", TenantID: "acme", Name: "weather", Namespace: "tools",
		Version: "1.2.0", Manifest: "# weather", IsActive: true, IsPublic: true,
		RequiredPermissions: []string{"net"}, Author: "ops", Tags: []string{"api"},
		Config: map[string]any{"units": "metric", "retries": float64(3)},
		CreatedAt: stamp, UpdatedAt: stamp,
	}
	require.NoError(t, repo.Save(ctx, skill))
	require.NoError(t, repo.Save(ctx, &domain.Skill{
		ID: "s2", TenantID: "acme", Name: "notes", Namespace: "default",
		Version: "1.0.0", CreatedAt: stamp, UpdatedAt: stamp,
	}))

	got, err := repo.GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, got.IsActive)
	assert.True(t, got.IsPublic)
	assert.Equal(t, []string{"net"}, got.RequiredPermissions)
	assert.Equal(t, map[string]any{"units": "metric", "retries": float64(3)}, got.Config)

	tools, err := repo.ListByNamespace(ctx, "acme", "tools")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "weather", tools[0].Name)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "notes", all[0].Name)
	assert.False(t, all[0].IsActive)
}

func TestSessionsRepository_MessagesCascade(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionsRepository(openTestDB(t))

	closed := stamp.Add(2 * time.Hour)
	session := &domain.Session{
		ID: "sess-1", TenantID: "acme", UserID: "u1", Channel: "slack",
		Status: domain.SessionClosed, MessagesCount: 2,
		Metadata: map[string]any{"topic": "billing"}, CreatedAt: stamp, UpdatedAt: closed, ClosedAt: &closed,
	}
	require.NoError(t, repo.Save(ctx, session))

	require.NoError(t, repo.SaveMessage(ctx, &domain.Message{
		ID: "msg-2", SessionID: "sess-1", Role: domain.RoleAssistant, Content: "hello", CreatedAt: stamp.Add(time.Second),
	}))
	require.NoError(t, repo.SaveMessage(ctx, &domain.Message{
		ID: "msg-1", SessionID: "sess-1", Role: domain.RoleUser, Content: "hi", CreatedAt: stamp,
		Metadata: map[string]any{"lang": "en"},
	}))

	got, err := repo.GetByID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionClosed, got.Status)
	assert.Equal(t, 2, got.MessagesCount)
	require.NotNil(t, got.ClosedAt)
	assert.True(t, got.ClosedAt.Equal(closed))

	msgs, err := repo.ListMessages(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "msg-1", msgs[0].ID)
	assert.Equal(t, "en", msgs[0].Metadata["lang"])
	assert.Equal(t, domain.RoleAssistant, msgs[1].Role)

	orphan := &domain.Message{ID: "msg-x", SessionID: "nope", Role: domain.RoleUser, Content: "?", CreatedAt: stamp}
	assert.Error(t, repo.SaveMessage(ctx, orphan))

	require.NoError(t, repo.Delete(ctx, "sess-1"))
	msgs, err = repo.ListMessages(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPostgresDSN(t *testing.T) {
	assert.Equal(t,
		"host=db port=5432 user=app password=secret dbname=tenancy sslmode=disable",
		PostgresDSN("db", 5432, "app", "secret", "tenancy", "disable"))
}
