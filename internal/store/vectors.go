package store

import (
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"time"
)

// VectorRecord is the sidecar embedding cache row for one memory.
type VectorRecord struct {
	MemoryID    string
	Embedding   []float64
	Model       string
	Dimensions  int
	ContentHash string
	CreatedAt   time.Time
}

func encodeEmbedding(vec []float64) []byte {
	buf := make([]byte, 8*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) []float64 {
	n := len(buf) / 8
	vec := make([]float64, n)
	for i := 0; i < n; i++ {
		vec[i] = math.Float64frombits(binary.LittleEndian.Uint64(buf[i*8:]))
	}
	return vec
}

// SaveVector upserts the embedding for a memory id.
func (db *DB) SaveVector(v VectorRecord) error {
	_, err := db.Exec(`
		INSERT INTO vectors (memory_id, embedding, model, dimensions, content_hash, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(memory_id) DO UPDATE SET
			embedding=excluded.embedding, model=excluded.model,
			dimensions=excluded.dimensions, content_hash=excluded.content_hash,
			created_at=excluded.created_at
	`, v.MemoryID, encodeEmbedding(v.Embedding), v.Model, v.Dimensions, v.ContentHash, v.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save vector %s: %w", v.MemoryID, err)
	}
	return nil
}

// GetVector loads the embedding for a memory id.
func (db *DB) GetVector(memoryID string) (*VectorRecord, error) {
	var v VectorRecord
	var buf []byte
	var createdMs int64
	err := db.QueryRow(`
		SELECT memory_id, embedding, model, dimensions, content_hash, created_at
		FROM vectors WHERE memory_id = ?
	`, memoryID).Scan(&v.MemoryID, &buf, &v.Model, &v.Dimensions, &v.ContentHash, &createdMs)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get vector %s: %w", memoryID, err)
	}
	v.Embedding = decodeEmbedding(buf)
	v.CreatedAt = time.UnixMilli(createdMs)
	return &v, nil
}

// AllVectors returns every vector in the sidecar cache, for brute-force
// search and full rebuilds.
func (db *DB) AllVectors() ([]VectorRecord, error) {
	rows, err := db.Query(`SELECT memory_id, embedding, model, dimensions, content_hash, created_at FROM vectors`)
	if err != nil {
		return nil, fmt.Errorf("list vectors: %w", err)
	}
	defer rows.Close()

	var out []VectorRecord
	for rows.Next() {
		var v VectorRecord
		var buf []byte
		var createdMs int64
		if err := rows.Scan(&v.MemoryID, &buf, &v.Model, &v.Dimensions, &v.ContentHash, &createdMs); err != nil {
			return nil, err
		}
		v.Embedding = decodeEmbedding(buf)
		v.CreatedAt = time.UnixMilli(createdMs)
		out = append(out, v)
	}
	return out, rows.Err()
}

// DeleteVector removes a memory's cached embedding.
func (db *DB) DeleteVector(memoryID string) error {
	_, err := db.Exec(`DELETE FROM vectors WHERE memory_id = ?`, memoryID)
	return err
}
