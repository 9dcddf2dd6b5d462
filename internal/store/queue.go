package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Job is one unit of ingestion work enqueued by the session-end hook,
// per spec.md §4.K.
type Job struct {
	ID             string
	SessionID      string
	ProjectID      string
	TranscriptPath string
	Status         string
	CreatedAt      int64
	AckedAt        sql.NullInt64
}

// Enqueue appends a job to the durable queue and returns its id.
func (db *DB) Enqueue(sessionID, projectID, transcriptPath string) (string, error) {
	id := uuid.New().String()
	_, err := db.Exec(`
		INSERT INTO queue_jobs (id, session_id, project_id, transcript_path, status, created_at)
		VALUES (?, ?, ?, ?, 'pending', ?)
	`, id, sessionID, projectID, transcriptPath, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("enqueue job: %w", err)
	}
	return id, nil
}

// NextPending claims the oldest pending job, marking it processing, for
// at-least-once consumption. Returns nil, nil if the queue is empty.
func (db *DB) NextPending() (*Job, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var j Job
	err = tx.QueryRow(`
		SELECT id, session_id, project_id, transcript_path, status, created_at, acked_at
		FROM queue_jobs WHERE status IN ('pending','processing') ORDER BY created_at ASC LIMIT 1
	`).Scan(&j.ID, &j.SessionID, &j.ProjectID, &j.TranscriptPath, &j.Status, &j.CreatedAt, &j.AckedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}

	if _, err := tx.Exec(`UPDATE queue_jobs SET status='processing' WHERE id=?`, j.ID); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	j.Status = "processing"
	return &j, nil
}

// Ack marks a job done — the last-acknowledged marker the consumer
// resumes from after a crash.
func (db *DB) Ack(jobID string) error {
	_, err := db.Exec(`UPDATE queue_jobs SET status='done', acked_at=? WHERE id=?`, time.Now().UnixMilli(), jobID)
	return err
}

// Fail marks a job failed so it won't be retried forever; the consumer
// logs the cause.
func (db *DB) Fail(jobID string) error {
	_, err := db.Exec(`UPDATE queue_jobs SET status='failed' WHERE id=?`, jobID)
	return err
}

// PendingCount reports queue depth, used for the soft-cap backpressure
// check in spec.md §5.
func (db *DB) PendingCount() (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM queue_jobs WHERE status IN ('pending','processing')`).Scan(&n)
	return n, err
}
