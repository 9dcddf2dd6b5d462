package store

import "fmt"

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "vectors: embedding sidecar cache keyed by memory id",
		SQL: `
CREATE TABLE vectors (
    memory_id  TEXT PRIMARY KEY,
    embedding  BLOB NOT NULL,
    model      TEXT NOT NULL,
    dimensions INTEGER NOT NULL,
    content_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX idx_vectors_hash ON vectors(content_hash);
`,
	},
	{
		Version:     2,
		Description: "fsrs_state: spaced-repetition scheduler state",
		SQL: `
CREATE TABLE fsrs_state (
    memory_id          TEXT PRIMARY KEY,
    difficulty         REAL NOT NULL DEFAULT 5.0,
    stability          REAL NOT NULL DEFAULT 1.0,
    last_reviewed      INTEGER,
    next_due           INTEGER,
    review_count       INTEGER NOT NULL DEFAULT 0,
    validated_projects TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX idx_fsrs_next_due ON fsrs_state(next_due);
`,
	},
	{
		Version:     3,
		Description: "review_history: append-only FSRS review log",
		SQL: `
CREATE TABLE review_history (
    id               INTEGER PRIMARY KEY,
    memory_id        TEXT NOT NULL,
    reviewed_at      INTEGER NOT NULL,
    grade            TEXT NOT NULL CHECK (grade IN ('FAIL','HARD','GOOD','EASY')),
    stability_before REAL NOT NULL,
    stability_after  REAL NOT NULL,
    difficulty_before REAL NOT NULL,
    difficulty_after  REAL NOT NULL,
    interval_before  INTEGER NOT NULL,
    interval_after   INTEGER NOT NULL
);
CREATE INDEX idx_review_memory ON review_history(memory_id, reviewed_at);
`,
	},
	{
		Version:     4,
		Description: "edges: typed relationship/contradiction graph",
		SQL: `
CREATE TABLE edges (
    id         INTEGER PRIMARY KEY,
    from_id    TEXT NOT NULL,
    to_id      TEXT NOT NULL,
    type       TEXT NOT NULL CHECK (type IN ('causal','contradicts','supports','requires','related')),
    strength   REAL NOT NULL DEFAULT 0.5,
    evidence   TEXT,
    created_at INTEGER NOT NULL,
    created_by TEXT NOT NULL DEFAULT 'system',
    UNIQUE(from_id, to_id, type)
);
CREATE INDEX idx_edges_from ON edges(from_id, type);
CREATE INDEX idx_edges_to   ON edges(to_id, type);
`,
	},
	{
		Version:     5,
		Description: "search_cache: TTL query cache keyed by fingerprint",
		SQL: `
CREATE TABLE search_cache (
    fingerprint TEXT PRIMARY KEY,
    memory_ids  TEXT NOT NULL,
    hit_count   INTEGER NOT NULL DEFAULT 0,
    created_at  INTEGER NOT NULL,
    expires_at  INTEGER NOT NULL
);
CREATE INDEX idx_cache_expires ON search_cache(expires_at);
`,
	},
	{
		Version:     6,
		Description: "search_analytics: query/position/selection log",
		SQL: `
CREATE TABLE search_analytics (
    id           INTEGER PRIMARY KEY,
    query        TEXT NOT NULL,
    result_count INTEGER NOT NULL,
    selected_id  TEXT,
    position     INTEGER,
    created_at   INTEGER NOT NULL
);
`,
	},
	{
		Version:     7,
		Description: "breaker_state: durable circuit breaker state per call site",
		SQL: `
CREATE TABLE breaker_state (
    name          TEXT PRIMARY KEY,
    state         TEXT NOT NULL,
    failure_count INTEGER NOT NULL DEFAULT 0,
    last_failure  INTEGER,
    opened_at     INTEGER
);
`,
	},
	{
		Version:     8,
		Description: "queue_jobs: durable async ingestion queue",
		SQL: `
CREATE TABLE queue_jobs (
    id              TEXT PRIMARY KEY,
    session_id      TEXT NOT NULL,
    project_id      TEXT NOT NULL,
    transcript_path TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','processing','done','failed')),
    created_at      INTEGER NOT NULL,
    acked_at        INTEGER
);
CREATE INDEX idx_queue_status ON queue_jobs(status, created_at);
`,
	},
	{
		Version:     9,
		Description: "sessions: session tracking for the ingestion queue",
		SQL: `
CREATE TABLE sessions (
    id         INTEGER PRIMARY KEY,
    session_id TEXT NOT NULL UNIQUE,
    project    TEXT,
    started_at INTEGER NOT NULL,
    ended_at   INTEGER,
    status     TEXT NOT NULL DEFAULT 'active' CHECK (status IN ('active','completed','failed'))
);
CREATE INDEX idx_sessions_status ON sessions(status);
`,
	},
	{
		Version:     10,
		Description: "shared_insights + sharing_config: cross-project sharing",
		SQL: `
CREATE TABLE shared_insights (
    id              TEXT PRIMARY KEY,
    source_project  TEXT NOT NULL,
    target_project  TEXT NOT NULL,
    memory_id       TEXT NOT NULL,
    relevance_score REAL NOT NULL DEFAULT 0,
    created_at      INTEGER NOT NULL,
    status          TEXT NOT NULL DEFAULT 'pending',
    UNIQUE(memory_id, target_project)
);
CREATE TABLE sharing_config (
    project_id TEXT PRIMARY KEY,
    enabled    INTEGER NOT NULL DEFAULT 1
);
`,
	},
	{
		Version:     11,
		Description: "maintenance_runs: idempotency markers for daily/weekly jobs",
		SQL: `
CREATE TABLE maintenance_runs (
    id         INTEGER PRIMARY KEY,
    job        TEXT NOT NULL,
    window_key TEXT NOT NULL,
    ran_at     INTEGER NOT NULL,
    dry_run    INTEGER NOT NULL DEFAULT 0,
    UNIQUE(job, window_key)
);
`,
	},
}

func (db *DB) migrate() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_versions (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  INTEGER NOT NULL DEFAULT (strftime('%s', 'now') * 1000)
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_versions: %w", err)
	}

	for _, m := range migrations {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM schema_versions WHERE version = ?", m.Version).Scan(&count)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if count > 0 {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_versions (version, description) VALUES (?, ?)",
			m.Version, m.Description,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version.
func (db *DB) SchemaVersion() (int, error) {
	var version int
	err := db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_versions").Scan(&version)
	return version, err
}
