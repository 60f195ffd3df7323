// Package migrations applies the database schema in order. Applied versions
// are tracked in a schema_migrations table so startup is idempotent.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

type migration struct {
	version int
	name    string
	stmt    string
}

var all = []migration{
	{
		version: 1,
		name:    "create_identities",
		stmt: `CREATE TABLE IF NOT EXISTS identities (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			profile_image TEXT NOT NULL DEFAULT '',
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			post_ids TEXT[] NOT NULL DEFAULT '{}',
			comment_ids TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	},
	{
		version: 2,
		name:    "create_posts",
		stmt: `CREATE TABLE IF NOT EXISTS posts (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL UNIQUE,
			slug TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			category TEXT NOT NULL,
			image TEXT NOT NULL,
			author_id TEXT NOT NULL,
			comment_ids TEXT[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	},
	{
		version: 3,
		name:    "create_comments",
		stmt: `CREATE TABLE IF NOT EXISTS comments (
			id TEXT PRIMARY KEY,
			content TEXT NOT NULL,
			post_id TEXT NOT NULL,
			author_id TEXT NOT NULL,
			likes TEXT[] NOT NULL DEFAULT '{}',
			number_of_likes INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
	},
	{
		version: 4,
		name:    "post_and_comment_indexes",
		stmt: `CREATE INDEX IF NOT EXISTS idx_posts_author ON posts (author_id);
			CREATE INDEX IF NOT EXISTS idx_posts_created ON posts (created_at DESC);
			CREATE INDEX IF NOT EXISTS idx_comments_post ON comments (post_id)`,
	},
}

// Apply runs all pending migrations in version order.
func Apply(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	for _, m := range all {
		var exists bool
		err := db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)", m.version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.version, err)
		}
		if exists {
			continue
		}
		if _, err := db.ExecContext(ctx, m.stmt); err != nil {
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.name, err)
		}
		if _, err := db.ExecContext(ctx, "INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.version, m.name); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
	}
	return nil
}
