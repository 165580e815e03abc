package pgstate

import (
	"context"
)

// AutoMigrate creates the tables when missing.
func AutoMigrate(ctx context.Context, db DB) error {
	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS queues (
          name             TEXT PRIMARY KEY,
          current_position INT NOT NULL DEFAULT 0,
          max_position     INT NOT NULL DEFAULT 0,
          tenant_id        BIGINT NOT NULL DEFAULT 0,
          created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
          CHECK (current_position >= 0 AND current_position <= max_position)
      )
    `); err != nil {
		return err
	}

	if _, err := db.Exec(ctx, `
      CREATE TABLE IF NOT EXISTS songs (
          url           TEXT NOT NULL,
          submitter_id  BIGINT NOT NULL,
          queue_name    TEXT NOT NULL REFERENCES queues(name) ON DELETE CASCADE,
          title         TEXT NOT NULL DEFAULT '',
          duration      INT NOT NULL DEFAULT 0,
          lyrics_url    TEXT NOT NULL DEFAULT '',
          notes         TEXT NOT NULL DEFAULT '',
          collaborators TEXT NOT NULL DEFAULT '',
          position      INT NOT NULL,
          submitted_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
          completed_at  TIMESTAMPTZ,
          is_revoked    BOOLEAN NOT NULL DEFAULT FALSE,
          tenant_id     BIGINT NOT NULL DEFAULT 0,
          PRIMARY KEY (url, submitter_id),
          UNIQUE (queue_name, position)
      )
    `); err != nil {
		return err
	}

	if _, err := db.Exec(ctx, `
		CREATE INDEX IF NOT EXISTS idx_songs_submitter_active
		ON songs(submitter_id) WHERE NOT is_revoked AND completed_at IS NULL
	`); err != nil {
		return err
	}

	return nil
}
