// ABOUTME: Database schema definitions for the submission journal
// ABOUTME: Handles SQLite table creation and initialization
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS sync_state (
	lead_id TEXT PRIMARY KEY,
	remote_id TEXT,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS submission_log (
	id TEXT PRIMARY KEY,
	lead_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	outcome TEXT NOT NULL,
	error_message TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	attempted_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_submission_log_lead_id ON submission_log(lead_id);
CREATE INDEX IF NOT EXISTS idx_submission_log_attempted_at ON submission_log(attempted_at);
`

// InitSchema creates the journal tables if they do not exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
