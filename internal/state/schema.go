package state

import (
	"database/sql"
)

const currentSchemaVersion = 1

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY
		);

		CREATE TABLE IF NOT EXISTS queues (
			name TEXT PRIMARY KEY,
			current_position INTEGER NOT NULL DEFAULT 0,
			max_position INTEGER NOT NULL DEFAULT 0,
			tenant_id INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			CHECK (current_position >= 0 AND current_position <= max_position)
		);

		CREATE TABLE IF NOT EXISTS songs (
			url TEXT NOT NULL,
			submitter_id INTEGER NOT NULL,
			queue_name TEXT NOT NULL REFERENCES queues(name) ON DELETE CASCADE,
			title TEXT NOT NULL DEFAULT '',
			duration INTEGER NOT NULL DEFAULT 0,
			lyrics_url TEXT,
			notes TEXT,
			collaborators TEXT,
			position INTEGER NOT NULL,
			submitted_at INTEGER NOT NULL,
			completed_at INTEGER,
			is_revoked INTEGER NOT NULL DEFAULT 0,
			tenant_id INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (url, submitter_id),
			UNIQUE (queue_name, position)
		);

		CREATE INDEX IF NOT EXISTS idx_songs_queue_position ON songs(queue_name, position);
		CREATE INDEX IF NOT EXISTS idx_songs_submitter ON songs(submitter_id);
	`)
	if err != nil {
		return err
	}

	// Set initial version if not exists
	_, err = db.Exec(`
		INSERT OR IGNORE INTO schema_version (version) VALUES (?)
	`, currentSchemaVersion)
	if err != nil {
		return err
	}

	return nil
}
