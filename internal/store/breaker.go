package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/localmem/memsys/internal/breaker"
)

// SaveBreaker implements breaker.Persister.
func (db *DB) SaveBreaker(name string, state breaker.State, failureCount int, lastFailure, openedAt time.Time) error {
	var lastFailMs, openedAtMs sql.NullInt64
	if !lastFailure.IsZero() {
		lastFailMs = sql.NullInt64{Int64: lastFailure.UnixMilli(), Valid: true}
	}
	if !openedAt.IsZero() {
		openedAtMs = sql.NullInt64{Int64: openedAt.UnixMilli(), Valid: true}
	}
	_, err := db.Exec(`
		INSERT INTO breaker_state (name, state, failure_count, last_failure, opened_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			state=excluded.state, failure_count=excluded.failure_count,
			last_failure=excluded.last_failure, opened_at=excluded.opened_at
	`, name, string(state), failureCount, lastFailMs, openedAtMs)
	if err != nil {
		return fmt.Errorf("save breaker %s: %w", name, err)
	}
	return nil
}

// LoadBreaker implements breaker.Persister.
func (db *DB) LoadBreaker(name string) (breaker.State, int, time.Time, time.Time, bool, error) {
	var state string
	var failureCount int
	var lastFailMs, openedAtMs sql.NullInt64
	err := db.QueryRow(`
		SELECT state, failure_count, last_failure, opened_at FROM breaker_state WHERE name = ?
	`, name).Scan(&state, &failureCount, &lastFailMs, &openedAtMs)
	if err == sql.ErrNoRows {
		return breaker.Closed, 0, time.Time{}, time.Time{}, false, nil
	}
	if err != nil {
		return breaker.Closed, 0, time.Time{}, time.Time{}, false, fmt.Errorf("load breaker %s: %w", name, err)
	}
	var lastFailure, openedAt time.Time
	if lastFailMs.Valid {
		lastFailure = time.UnixMilli(lastFailMs.Int64)
	}
	if openedAtMs.Valid {
		openedAt = time.UnixMilli(openedAtMs.Int64)
	}
	return breaker.State(state), failureCount, lastFailure, openedAt, true, nil
}
