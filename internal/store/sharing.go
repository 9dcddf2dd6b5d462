package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SharedInsight is a lighter-weight project->project recommendation
// than full promotion, grounded on cross_project_sharing_db.py.
type SharedInsight struct {
	ID             string
	SourceProject  string
	TargetProject  string
	MemoryID       string
	RelevanceScore float64
	CreatedAt      int64
	Status         string
}

// Share records memoryID as shared from sourceProject into
// targetProject, deduplicated by (memory_id, target_project).
func (db *DB) Share(sourceProject, targetProject, memoryID string, relevance float64) (string, error) {
	if !db.sharingEnabledLocked(targetProject) {
		return "", fmt.Errorf("sharing disabled for project %s", targetProject)
	}
	var existing string
	err := db.QueryRow(`SELECT id FROM shared_insights WHERE memory_id = ? AND target_project = ?`, memoryID, targetProject).Scan(&existing)
	if err == nil {
		return existing, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}
	id := uuid.New().String()
	_, err = db.Exec(`
		INSERT INTO shared_insights (id, source_project, target_project, memory_id, relevance_score, created_at, status)
		VALUES (?, ?, ?, ?, ?, ?, 'pending')
	`, id, sourceProject, targetProject, memoryID, relevance, time.Now().UnixMilli())
	if err != nil {
		return "", fmt.Errorf("share %s: %w", memoryID, err)
	}
	return id, nil
}

// SharedWith returns all insights shared into targetProject.
func (db *DB) SharedWith(targetProject string) ([]SharedInsight, error) {
	rows, err := db.Query(`
		SELECT id, source_project, target_project, memory_id, relevance_score, created_at, status
		FROM shared_insights WHERE target_project = ? ORDER BY created_at DESC
	`, targetProject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SharedInsight
	for rows.Next() {
		var s SharedInsight
		if err := rows.Scan(&s.ID, &s.SourceProject, &s.TargetProject, &s.MemoryID, &s.RelevanceScore, &s.CreatedAt, &s.Status); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetSharingEnabled toggles whether a project accepts shared insights.
func (db *DB) SetSharingEnabled(projectID string, enabled bool) error {
	v := 0
	if enabled {
		v = 1
	}
	_, err := db.Exec(`
		INSERT INTO sharing_config (project_id, enabled) VALUES (?, ?)
		ON CONFLICT(project_id) DO UPDATE SET enabled=excluded.enabled
	`, projectID, v)
	return err
}

// IsSharingEnabled reports whether projectID accepts shared insights;
// unconfigured projects default to enabled.
func (db *DB) IsSharingEnabled(projectID string) bool {
	return db.sharingEnabledLocked(projectID)
}

func (db *DB) sharingEnabledLocked(projectID string) bool {
	var enabled int
	err := db.QueryRow(`SELECT enabled FROM sharing_config WHERE project_id = ?`, projectID).Scan(&enabled)
	if err == sql.ErrNoRows {
		return true
	}
	if err != nil {
		return true
	}
	return enabled != 0
}

// SharingStats reports aggregate counts for the given project as a
// sharing source.
func (db *DB) SharingStats(sourceProject string) (total int, byTarget map[string]int, err error) {
	byTarget = map[string]int{}
	rows, err := db.Query(`SELECT target_project, COUNT(*) FROM shared_insights WHERE source_project = ? GROUP BY target_project`, sourceProject)
	if err != nil {
		return 0, nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var target string
		var count int
		if err := rows.Scan(&target, &count); err != nil {
			return 0, nil, err
		}
		byTarget[target] = count
		total += count
	}
	return total, byTarget, rows.Err()
}
