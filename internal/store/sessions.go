package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Session tracks one conversation session for the ingestion pipeline.
type Session struct {
	ID        int64
	SessionID string
	Project   string
	StartedAt int64
	EndedAt   sql.NullInt64
	Status    string
}

// InitSession finds an active session by session_id or creates one.
func (db *DB) InitSession(sessionID, project string) (*Session, error) {
	var s Session
	err := db.QueryRow(`
		SELECT id, session_id, project, started_at, ended_at, status
		FROM sessions WHERE session_id = ?
	`, sessionID).Scan(&s.ID, &s.SessionID, &s.Project, &s.StartedAt, &s.EndedAt, &s.Status)
	if err == nil {
		return &s, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("lookup session %s: %w", sessionID, err)
	}

	now := time.Now().UnixMilli()
	res, err := db.Exec(`
		INSERT INTO sessions (session_id, project, started_at, status) VALUES (?, ?, ?, 'active')
	`, sessionID, project, now)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", sessionID, err)
	}
	id, _ := res.LastInsertId()
	return &Session{ID: id, SessionID: sessionID, Project: project, StartedAt: now, Status: "active"}, nil
}

// CompleteSession marks a session completed.
func (db *DB) CompleteSession(sessionID string) error {
	_, err := db.Exec(`UPDATE sessions SET status='completed', ended_at=? WHERE session_id=?`,
		time.Now().UnixMilli(), sessionID)
	return err
}

// EndSession marks a session ended, idempotently (COALESCE keeps the
// first ended_at if already set).
func (db *DB) EndSession(sessionID string) error {
	_, err := db.Exec(`
		UPDATE sessions SET ended_at = COALESCE(ended_at, ?), status='completed' WHERE session_id=?
	`, time.Now().UnixMilli(), sessionID)
	return err
}

// GetRecentSessions returns the N most recently started sessions.
func (db *DB) GetRecentSessions(limit int) ([]Session, error) {
	rows, err := db.Query(`
		SELECT id, session_id, project, started_at, ended_at, status
		FROM sessions ORDER BY started_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var s Session
		if err := rows.Scan(&s.ID, &s.SessionID, &s.Project, &s.StartedAt, &s.EndedAt, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
