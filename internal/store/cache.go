package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// CacheEntry is one TTL-bounded search result cache row.
type CacheEntry struct {
	Fingerprint string
	MemoryIDs   []string
	HitCount    int
	CreatedAt   int64
	ExpiresAt   int64
}

// CacheGet returns a cache entry if present and unexpired, incrementing
// its hit count.
func (db *DB) CacheGet(fingerprint string) (*CacheEntry, error) {
	var e CacheEntry
	var idsJSON string
	err := db.QueryRow(`
		SELECT fingerprint, memory_ids, hit_count, created_at, expires_at
		FROM search_cache WHERE fingerprint = ?
	`, fingerprint).Scan(&e.Fingerprint, &idsJSON, &e.HitCount, &e.CreatedAt, &e.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}
	if e.ExpiresAt < time.Now().UnixMilli() {
		_, _ = db.Exec(`DELETE FROM search_cache WHERE fingerprint = ?`, fingerprint)
		return nil, nil
	}
	_ = json.Unmarshal([]byte(idsJSON), &e.MemoryIDs)
	_, _ = db.Exec(`UPDATE search_cache SET hit_count = hit_count + 1 WHERE fingerprint = ?`, fingerprint)
	return &e, nil
}

// CachePut stores a result list under fingerprint with the given TTL.
// Per spec.md §4.E, entries with fewer than 3 or more than 100 results
// are bypassed rather than cached.
func (db *DB) CachePut(fingerprint string, ids []string, ttl time.Duration) error {
	if len(ids) < 3 || len(ids) > 100 {
		return nil
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	now := time.Now()
	_, err = db.Exec(`
		INSERT INTO search_cache (fingerprint, memory_ids, hit_count, created_at, expires_at)
		VALUES (?, ?, 0, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			memory_ids=excluded.memory_ids, created_at=excluded.created_at, expires_at=excluded.expires_at, hit_count=0
	`, fingerprint, string(idsJSON), now.UnixMilli(), now.Add(ttl).UnixMilli())
	return err
}

// InvalidateCacheForID removes every cache entry whose stored ids
// intersect memoryID, per spec.md §4.E's conservative invalidation.
func (db *DB) InvalidateCacheForID(memoryID string) error {
	rows, err := db.Query(`SELECT fingerprint, memory_ids FROM search_cache`)
	if err != nil {
		return err
	}
	var toDelete []string
	for rows.Next() {
		var fp, idsJSON string
		if err := rows.Scan(&fp, &idsJSON); err != nil {
			rows.Close()
			return err
		}
		var ids []string
		_ = json.Unmarshal([]byte(idsJSON), &ids)
		for _, id := range ids {
			if id == memoryID {
				toDelete = append(toDelete, fp)
				break
			}
		}
	}
	rows.Close()
	for _, fp := range toDelete {
		if _, err := db.Exec(`DELETE FROM search_cache WHERE fingerprint = ?`, fp); err != nil {
			return err
		}
	}
	return nil
}

// EvictExpired removes all expired cache entries and reports how many
// it removed. Unexpired entries are kept however many there are.
func (db *DB) EvictExpired() (int, error) {
	res, err := db.Exec(`DELETE FROM search_cache WHERE expires_at < ?`, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
