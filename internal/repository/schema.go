package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		auth_id TEXT PRIMARY KEY,
		username TEXT UNIQUE,
		email TEXT NOT NULL DEFAULT '',
		friends TEXT[] NOT NULL DEFAULT '{}',
		pending_sent_requests TEXT[] NOT NULL DEFAULT '{}',
		pending_received_requests TEXT[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS matches (
		match_id TEXT PRIMARY KEY,
		date TEXT NOT NULL,
		time TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		format TEXT NOT NULL,
		created_by TEXT NOT NULL,
		players JSONB NOT NULL DEFAULT '[]',
		player_ids TEXT[] NOT NULL DEFAULT '{}',
		score_a INTEGER NOT NULL DEFAULT 0,
		score_b INTEGER NOT NULL DEFAULT 0,
		validations JSONB NOT NULL DEFAULT '[]',
		validator_ids TEXT[] NOT NULL DEFAULT '{}',
		is_validated BOOLEAN NOT NULL DEFAULT FALSE,
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS matches_player_ids_idx ON matches USING GIN (player_ids)`,
	`CREATE INDEX IF NOT EXISTS matches_created_by_idx ON matches (created_by)`,
}

// EnsureSchema creates the tables the Postgres store needs
func EnsureSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
