package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// FSRSState is the sidecar row backing the spaced-repetition scheduler.
type FSRSState struct {
	MemoryID          string
	Difficulty        float64
	Stability         float64
	LastReviewed      sql.NullInt64
	NextDue           sql.NullInt64
	ReviewCount       int
	ValidatedProjects []string
}

// GetFSRSState loads scheduler state for a memory, or a fresh zero
// state (difficulty 5, stability 1) if none exists yet.
func (db *DB) GetFSRSState(memoryID string) (*FSRSState, error) {
	var s FSRSState
	var validatedJSON string
	err := db.QueryRow(`
		SELECT memory_id, difficulty, stability, last_reviewed, next_due, review_count, validated_projects
		FROM fsrs_state WHERE memory_id = ?
	`, memoryID).Scan(&s.MemoryID, &s.Difficulty, &s.Stability, &s.LastReviewed, &s.NextDue, &s.ReviewCount, &validatedJSON)
	if err == sql.ErrNoRows {
		return &FSRSState{MemoryID: memoryID, Difficulty: 5.0, Stability: 1.0}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get fsrs state %s: %w", memoryID, err)
	}
	_ = json.Unmarshal([]byte(validatedJSON), &s.ValidatedProjects)
	return &s, nil
}

// SaveFSRSState upserts scheduler state for a memory.
func (db *DB) SaveFSRSState(s *FSRSState) error {
	validatedJSON, err := json.Marshal(s.ValidatedProjects)
	if err != nil {
		return fmt.Errorf("marshal validated_projects: %w", err)
	}
	_, err = db.Exec(`
		INSERT INTO fsrs_state (memory_id, difficulty, stability, last_reviewed, next_due, review_count, validated_projects)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			difficulty=excluded.difficulty, stability=excluded.stability,
			last_reviewed=excluded.last_reviewed, next_due=excluded.next_due,
			review_count=excluded.review_count, validated_projects=excluded.validated_projects
	`, s.MemoryID, s.Difficulty, s.Stability, s.LastReviewed, s.NextDue, s.ReviewCount, string(validatedJSON))
	if err != nil {
		return fmt.Errorf("save fsrs state %s: %w", s.MemoryID, err)
	}
	return nil
}

// AppendReviewHistory inserts an append-only review log row and updates
// FSRS state in the same transaction, per spec.md §5.
func (db *DB) AppendReviewHistory(s *FSRSState, grade string, stabBefore, stabAfter, diffBefore, diffAfter float64, intervalBefore, intervalAfter int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	validatedJSON, err := json.Marshal(s.ValidatedProjects)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO fsrs_state (memory_id, difficulty, stability, last_reviewed, next_due, review_count, validated_projects)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			difficulty=excluded.difficulty, stability=excluded.stability,
			last_reviewed=excluded.last_reviewed, next_due=excluded.next_due,
			review_count=excluded.review_count, validated_projects=excluded.validated_projects
	`, s.MemoryID, s.Difficulty, s.Stability, s.LastReviewed, s.NextDue, s.ReviewCount, string(validatedJSON)); err != nil {
		return fmt.Errorf("update fsrs state: %w", err)
	}

	if _, err := tx.Exec(`
		INSERT INTO review_history
			(memory_id, reviewed_at, grade, stability_before, stability_after, difficulty_before, difficulty_after, interval_before, interval_after)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.MemoryID, time.Now().UnixMilli(), grade, stabBefore, stabAfter, diffBefore, diffAfter, intervalBefore, intervalAfter); err != nil {
		return fmt.Errorf("append review history: %w", err)
	}

	return tx.Commit()
}

// ReviewHistoryRow is one append-only review log entry.
type ReviewHistoryRow struct {
	MemoryID   string
	ReviewedAt int64
	Grade      string
}

// ReviewHistory returns all history rows for a memory, oldest first.
func (db *DB) ReviewHistory(memoryID string) ([]ReviewHistoryRow, error) {
	rows, err := db.Query(`
		SELECT memory_id, reviewed_at, grade FROM review_history WHERE memory_id = ? ORDER BY reviewed_at ASC
	`, memoryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ReviewHistoryRow
	for rows.Next() {
		var r ReviewHistoryRow
		if err := rows.Scan(&r.MemoryID, &r.ReviewedAt, &r.Grade); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// DueReview is a candidate row for the review queue.
type DueReview struct {
	MemoryID    string
	NextDue     int64
	DaysOverdue float64
	Importance  float64
}

// DueReviews returns every FSRS row whose next_due has passed. Only
// MemoryID and NextDue are filled in; DaysOverdue and Importance are
// left zero (importance lives in the markdown frontmatter, not the
// sidecar), and limit does not cap the rows returned.
func (db *DB) DueReviews(limit int) ([]DueReview, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := db.Query(`
		SELECT memory_id, next_due FROM fsrs_state WHERE next_due IS NOT NULL AND next_due <= ?
	`, time.Now().UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DueReview
	for rows.Next() {
		var d DueReview
		if err := rows.Scan(&d.MemoryID, &d.NextDue); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
