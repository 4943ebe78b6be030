// ABOUTME: Database operations for the sync_state and submission_log tables
// ABOUTME: Records submission attempts and tracks per-lead sync status for operational visibility
package db

import (
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
)

// SyncState is the latest sync status for a lead.
type SyncState struct {
	LeadID       string
	RemoteID     *string
	Status       string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SubmissionLog is one recorded attempt against the CRM.
type SubmissionLog struct {
	ID           string
	LeadID       string
	Kind         string
	Outcome      string
	ErrorMessage *string
	DurationMS   int64
	AttemptedAt  time.Time
}

// GetSyncState retrieves the sync state for a lead. Returns nil when
// the lead has never been journaled.
func GetSyncState(db *sql.DB, leadID string) (*SyncState, error) {
	var state SyncState
	var remoteID sql.NullString
	var errorMessage sql.NullString

	err := db.QueryRow(`
		SELECT lead_id, remote_id, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE lead_id = ?
	`, leadID).Scan(
		&state.LeadID,
		&remoteID,
		&state.Status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	if remoteID.Valid {
		state.RemoteID = &remoteID.String
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}

	return &state, nil
}

// UpdateSyncStatus upserts the sync status for a lead.
func UpdateSyncStatus(db *sql.DB, leadID, status string, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil && *errorMsg != "" {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (lead_id, status, error_message, created_at, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(lead_id) DO UPDATE SET
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, leadID, status, errorMsgVal)

	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// SetRemoteID records the CRM-assigned lead ID without touching status.
func SetRemoteID(db *sql.DB, leadID, remoteID string) error {
	_, err := db.Exec(`
		INSERT INTO sync_state (lead_id, remote_id, status, created_at, updated_at)
		VALUES (?, ?, 'idle', CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(lead_id) DO UPDATE SET
			remote_id = excluded.remote_id,
			updated_at = CURRENT_TIMESTAMP
	`, leadID, remoteID)

	if err != nil {
		return fmt.Errorf("failed to set remote id: %w", err)
	}

	return nil
}

// CreateSubmissionLog appends one attempt record.
func CreateSubmissionLog(db *sql.DB, id, leadID, kind, outcome string, errorMsg string, durationMS int64) error {
	var errorMsgVal sql.NullString
	if errorMsg != "" {
		errorMsgVal = sql.NullString{String: errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO submission_log (id, lead_id, kind, outcome, error_message, duration_ms, attempted_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, id, leadID, kind, outcome, errorMsgVal, durationMS)

	if err != nil {
		return fmt.Errorf("failed to create submission log: %w", err)
	}

	return nil
}

// ListSubmissionLogs returns the most recent attempts for a lead, or
// for all leads when leadID is empty.
func ListSubmissionLogs(db *sql.DB, leadID string, limit int) ([]SubmissionLog, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, lead_id, kind, outcome, error_message, duration_ms, attempted_at
		FROM submission_log
	`
	args := []any{}
	if leadID != "" {
		query += " WHERE lead_id = ?"
		args = append(args, leadID)
	}
	query += " ORDER BY attempted_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query submission logs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var logs []SubmissionLog
	for rows.Next() {
		var entry SubmissionLog
		var errorMessage sql.NullString

		err := rows.Scan(
			&entry.ID,
			&entry.LeadID,
			&entry.Kind,
			&entry.Outcome,
			&errorMessage,
			&entry.DurationMS,
			&entry.AttemptedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan submission log: %w", err)
		}

		if errorMessage.Valid {
			entry.ErrorMessage = &errorMessage.String
		}
		logs = append(logs, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating submission logs: %w", err)
	}

	return logs, nil
}

// Journal adapts the database to the submission queue's journal
// interface. Write failures are logged, never propagated: the journal
// must not block the funnel.
type Journal struct {
	db *sql.DB
}

// NewJournal wraps an open journal database.
func NewJournal(database *sql.DB) *Journal {
	return &Journal{db: database}
}

// RecordAttempt appends one submission attempt.
func (j *Journal) RecordAttempt(leadID, kind, outcome, errMsg string, duration time.Duration) {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
	if err := CreateSubmissionLog(j.db, id, leadID, kind, outcome, errMsg, duration.Milliseconds()); err != nil {
		log.Printf("journal: failed to record attempt: %v", err)
	}
}

// UpdateState upserts the lead's latest sync status.
func (j *Journal) UpdateState(leadID, status, errMsg string) {
	var msgPtr *string
	if errMsg != "" {
		msgPtr = &errMsg
	}
	if err := UpdateSyncStatus(j.db, leadID, status, msgPtr); err != nil {
		log.Printf("journal: failed to update sync state: %v", err)
	}
}
