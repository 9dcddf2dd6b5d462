package store

import (
	"database/sql"
	"time"
)

// AlreadyRan reports whether job has already run (non-dry-run) within
// windowKey (e.g. a date string for daily jobs, an ISO week for weekly
// ones), giving the maintenance pipeline its idempotence-per-window
// guarantee.
func (db *DB) AlreadyRan(job, windowKey string) (bool, error) {
	var id int64
	err := db.QueryRow(`SELECT id FROM maintenance_runs WHERE job = ? AND window_key = ? AND dry_run = 0`, job, windowKey).Scan(&id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

// MarkRan records that job ran for windowKey.
func (db *DB) MarkRan(job, windowKey string, dryRun bool) error {
	dr := 0
	if dryRun {
		dr = 1
	}
	_, err := db.Exec(`
		INSERT INTO maintenance_runs (job, window_key, ran_at, dry_run) VALUES (?, ?, ?, ?)
		ON CONFLICT(job, window_key) DO UPDATE SET ran_at=excluded.ran_at, dry_run=excluded.dry_run
	`, job, windowKey, time.Now().UnixMilli(), dr)
	return err
}
