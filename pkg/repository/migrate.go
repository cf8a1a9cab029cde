package repository

import (
	"context"
	"fmt"
	"strings"
)

// columnTypes holds the per-dialect spelling of the portable column types
// used in the schema below.
type columnTypes struct {
	Time string
	JSON string
}

var dialectTypes = map[Dialect]columnTypes{
	Postgres: {Time: "TIMESTAMPTZ", JSON: "JSONB"},
	SQLite:   {Time: "DATETIME", JSON: "TEXT"},
}

// schema uses {{TIME}} and {{JSON}} for the dialect-specific types.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		llm_provider TEXT NOT NULL DEFAULT '',
		llm_model TEXT NOT NULL DEFAULT '',
		settings {{JSON}} NOT NULL,
		features {{JSON}} NOT NULL,
		created_at {{TIME}} NOT NULL,
		updated_at {{TIME}} NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS licenses (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		license_key TEXT NOT NULL UNIQUE,
		license_type TEXT NOT NULL,
		status TEXT NOT NULL,
		max_users INTEGER NOT NULL,
		max_conversations INTEGER NOT NULL,
		issued_at {{TIME}} NOT NULL,
		expires_at {{TIME}} NOT NULL,
		features {{JSON}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_licenses_tenant ON licenses (tenant_id)`,
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		permissions {{JSON}} NOT NULL,
		created_at {{TIME}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_tenant ON users (tenant_id)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		channel TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		messages_count INTEGER NOT NULL DEFAULT 0,
		metadata {{JSON}} NOT NULL,
		created_at {{TIME}} NOT NULL,
		updated_at {{TIME}} NOT NULL,
		closed_at {{TIME}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sessions_tenant ON sessions (tenant_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions (id) ON DELETE CASCADE,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		metadata {{JSON}} NOT NULL,
		created_at {{TIME}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		user_id TEXT NOT NULL DEFAULT '',
		content TEXT NOT NULL,
		memory_type TEXT NOT NULL,
		tags {{JSON}} NOT NULL,
		importance INTEGER NOT NULL DEFAULT 0,
		is_pinned BOOLEAN NOT NULL DEFAULT FALSE,
		embedding {{JSON}},
		created_at {{TIME}} NOT NULL,
		updated_at {{TIME}} NOT NULL,
		last_accessed_at {{TIME}}
	)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_tenant ON memories (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_memories_tenant_user_type ON memories (tenant_id, user_id, memory_type)`,
	`CREATE TABLE IF NOT EXISTS skills (
		id TEXT PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		name TEXT NOT NULL,
		namespace TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		version TEXT NOT NULL,
		manifest TEXT NOT NULL DEFAULT '',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_public BOOLEAN NOT NULL DEFAULT FALSE,
		required_permissions {{JSON}} NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		tags {{JSON}} NOT NULL,
		config {{JSON}} NOT NULL,
		created_at {{TIME}} NOT NULL,
		updated_at {{TIME}} NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_skills_tenant ON skills (tenant_id)`,
	`CREATE INDEX IF NOT EXISTS idx_skills_tenant_namespace ON skills (tenant_id, namespace)`,
}

// Migrate creates any missing tables and indexes.
func (db *DB) Migrate(ctx context.Context) error {
	types, ok := dialectTypes[db.dialect]
	if !ok {
		return fmt.Errorf("no schema for dialect %q", db.dialect)
	}
	r := strings.NewReplacer("{{TIME}}", types.Time, "{{JSON}}", types.JSON)

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, r.Replace(stmt)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return tx.Commit()
}
