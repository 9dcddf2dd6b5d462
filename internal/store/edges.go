package store

import (
	"database/sql"
	"fmt"
	"time"
)

// Edge is a directed, typed relationship between two memories.
type Edge struct {
	ID        int64
	FromID    string
	ToID      string
	Type      string
	Strength  float64
	Evidence  string
	CreatedAt int64
	CreatedBy string
}

// LinkMemories inserts an edge, ignoring the call if the (from,to,type)
// triple already exists, per spec.md §4.I's uniqueness invariant.
func (db *DB) LinkMemories(fromID, toID, typ string, strength float64, evidence, createdBy string) error {
	if createdBy == "" {
		createdBy = "system"
	}
	_, err := db.Exec(`
		INSERT OR IGNORE INTO edges (from_id, to_id, type, strength, evidence, created_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, fromID, toID, typ, strength, evidence, time.Now().UnixMilli(), createdBy)
	if err != nil {
		return fmt.Errorf("link %s->%s (%s): %w", fromID, toID, typ, err)
	}
	return nil
}

// EdgeFilter narrows GetRelated queries.
type EdgeFilter struct {
	Type        string // empty = any
	MinStrength float64
	Direction   string // "out", "in", "both"
}

// GetRelated returns edges touching id matching filter.
func (db *DB) GetRelated(id string, f EdgeFilter) ([]Edge, error) {
	var query string
	args := []any{}
	switch f.Direction {
	case "out":
		query = `SELECT id, from_id, to_id, type, strength, evidence, created_at, created_by FROM edges WHERE from_id = ?`
		args = append(args, id)
	case "in":
		query = `SELECT id, from_id, to_id, type, strength, evidence, created_at, created_by FROM edges WHERE to_id = ?`
		args = append(args, id)
	default:
		query = `SELECT id, from_id, to_id, type, strength, evidence, created_at, created_by FROM edges WHERE from_id = ? OR to_id = ?`
		args = append(args, id, id)
	}
	if f.Type != "" {
		query += " AND type = ?"
		args = append(args, f.Type)
	}
	if f.MinStrength > 0 {
		query += " AND strength >= ?"
		args = append(args, f.MinStrength)
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get related %s: %w", id, err)
	}
	defer rows.Close()

	var out []Edge
	for rows.Next() {
		var e Edge
		if err := rows.Scan(&e.ID, &e.FromID, &e.ToID, &e.Type, &e.Strength, &e.Evidence, &e.CreatedAt, &e.CreatedBy); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// OutgoingCausal returns the causal-typed neighbors of id, used by the
// BFS causal-chain search.
func (db *DB) OutgoingCausal(id string) ([]string, error) {
	rows, err := db.Query(`SELECT to_id FROM edges WHERE from_id = ? AND type = 'causal'`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var to string
		if err := rows.Scan(&to); err != nil {
			return nil, err
		}
		out = append(out, to)
	}
	return out, rows.Err()
}

// EdgeStats summarizes the graph for a memory and globally.
type EdgeStats struct {
	InCount, OutCount int
	ByType            map[string]int
	AvgStrength       float64
}

// EdgeStats computes in/out counts for id and global per-type counts.
func (db *DB) EdgeStats(id string) (*EdgeStats, error) {
	stats := &EdgeStats{ByType: map[string]int{}}

	if id != "" {
		_ = db.QueryRow(`SELECT COUNT(*) FROM edges WHERE from_id = ?`, id).Scan(&stats.OutCount)
		_ = db.QueryRow(`SELECT COUNT(*) FROM edges WHERE to_id = ?`, id).Scan(&stats.InCount)
	}

	rows, err := db.Query(`SELECT type, COUNT(*), AVG(strength) FROM edges GROUP BY type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totalStrength float64
	var totalCount int
	for rows.Next() {
		var typ string
		var count int
		var avg sql.NullFloat64
		if err := rows.Scan(&typ, &count, &avg); err != nil {
			return nil, err
		}
		stats.ByType[typ] = count
		if avg.Valid {
			totalStrength += avg.Float64 * float64(count)
			totalCount += count
		}
	}
	if totalCount > 0 {
		stats.AvgStrength = totalStrength / float64(totalCount)
	}
	return stats, rows.Err()
}
