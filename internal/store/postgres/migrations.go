package postgres

import (
	"context"
	"fmt"
)

// migrations are applied in order on startup. Statements must be
// idempotent; there is no down path.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE TABLE IF NOT EXISTS scopes (
		source_id    TEXT PRIMARY KEY,
		capabilities TEXT[] NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS faces (
		owner_id       TEXT NOT NULL,
		face_name      TEXT NOT NULL,
		source_id      TEXT NOT NULL,
		destination_id TEXT NOT NULL DEFAULT '',
		auth_code      TEXT NOT NULL DEFAULT '',
		face_id        TEXT NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (owner_id, face_name)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_faces_source ON faces (source_id)`,
	`CREATE TABLE IF NOT EXISTS descriptors (
		group_id    TEXT NOT NULL,
		face_id     TEXT NOT NULL,
		is_training BOOLEAN NOT NULL DEFAULT false,
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		etag        TEXT NOT NULL,
		PRIMARY KEY (group_id, face_id)
	)`,
	`CREATE TABLE IF NOT EXISTS descriptor_samples (
		group_id TEXT NOT NULL,
		face_id  TEXT NOT NULL,
		idx      INT NOT NULL,
		sample   vector(128) NOT NULL,
		PRIMARY KEY (group_id, face_id, idx),
		FOREIGN KEY (group_id, face_id) REFERENCES descriptors (group_id, face_id) ON DELETE CASCADE
	)`,
}

func (p *Pool) migrate(ctx context.Context) error {
	for i, stmt := range migrations {
		if _, err := p.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
