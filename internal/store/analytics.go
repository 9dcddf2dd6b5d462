package store

import (
	"database/sql"
	"time"
)

// RecordSearch logs one (query, result_count, selected_id, position)
// analytics tuple, per spec.md §4.E.
func (db *DB) RecordSearch(query string, resultCount int, selectedID string, position int) error {
	var selected sql.NullString
	var pos sql.NullInt64
	if selectedID != "" {
		selected = sql.NullString{String: selectedID, Valid: true}
		pos = sql.NullInt64{Int64: int64(position), Valid: true}
	}
	_, err := db.Exec(`
		INSERT INTO search_analytics (query, result_count, selected_id, position, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, query, resultCount, selected, pos, time.Now().UnixMilli())
	return err
}
