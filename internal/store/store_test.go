package store

import (
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate(t *testing.T) {
	db := testDB(t)
	v, err := db.SchemaVersion()
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != len(migrations) {
		t.Fatalf("schema version = %d, want %d", v, len(migrations))
	}
}

func TestVectorRoundTrip(t *testing.T) {
	db := testDB(t)
	vec := []float64{0.1, 0.2, 0.3}
	if err := db.SaveVector(VectorRecord{MemoryID: "m1", Embedding: vec, Model: "tfidf", Dimensions: 3, ContentHash: "h1", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("SaveVector: %v", err)
	}
	got, err := db.GetVector("m1")
	if err != nil || got == nil {
		t.Fatalf("GetVector: %v, %v", got, err)
	}
	for i, v := range vec {
		if got.Embedding[i] != v {
			t.Fatalf("embedding[%d] = %v, want %v", i, got.Embedding[i], v)
		}
	}
}

func TestQueueLifecycle(t *testing.T) {
	db := testDB(t)
	id, err := db.Enqueue("s1", "p1", "/tmp/t.jsonl")
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	job, err := db.NextPending()
	if err != nil || job == nil {
		t.Fatalf("NextPending: %v, %v", job, err)
	}
	if job.ID != id {
		t.Fatalf("job id = %s, want %s", job.ID, id)
	}
	if err := db.Ack(id); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	next, err := db.NextPending()
	if err != nil {
		t.Fatalf("NextPending after ack: %v", err)
	}
	if next != nil {
		t.Fatalf("expected empty queue after ack, got %v", next)
	}
}

func TestEdgesCausalChain(t *testing.T) {
	db := testDB(t)
	_ = db.LinkMemories("a", "b", "causal", 0.8, "", "")
	_ = db.LinkMemories("b", "c", "causal", 0.8, "", "")
	neighbors, err := db.OutgoingCausal("a")
	if err != nil {
		t.Fatalf("OutgoingCausal: %v", err)
	}
	if len(neighbors) != 1 || neighbors[0] != "b" {
		t.Fatalf("neighbors = %v, want [b]", neighbors)
	}
}

func TestEdgeUniqueness(t *testing.T) {
	db := testDB(t)
	_ = db.LinkMemories("a", "b", "related", 0.5, "", "")
	_ = db.LinkMemories("a", "b", "related", 0.9, "", "") // ignored, not upserted
	related, err := db.GetRelated("a", EdgeFilter{Direction: "out"})
	if err != nil {
		t.Fatalf("GetRelated: %v", err)
	}
	if len(related) != 1 {
		t.Fatalf("expected exactly one edge, got %d", len(related))
	}
}

func TestCacheBypassSmallResultSet(t *testing.T) {
	db := testDB(t)
	if err := db.CachePut("fp1", []string{"a", "b"}, time.Hour); err != nil {
		t.Fatalf("CachePut: %v", err)
	}
	entry, err := db.CacheGet("fp1")
	if err != nil {
		t.Fatalf("CacheGet: %v", err)
	}
	if entry != nil {
		t.Fatalf("expected bypass for result set < 3, got %v", entry)
	}
}

func TestCacheRoundTripAndInvalidation(t *testing.T) {
	db := testDB(t)
	ids := []string{"a", "b", "c"}
	if err := db.CachePut("fp2", ids, time.Hour); err != nil {
		t.Fatalf("CachePut: %v", err)
	}
	entry, err := db.CacheGet("fp2")
	if err != nil || entry == nil {
		t.Fatalf("CacheGet: %v, %v", entry, err)
	}
	if err := db.InvalidateCacheForID("b"); err != nil {
		t.Fatalf("InvalidateCacheForID: %v", err)
	}
	entry2, err := db.CacheGet("fp2")
	if err != nil {
		t.Fatalf("CacheGet after invalidate: %v", err)
	}
	if entry2 != nil {
		t.Fatalf("expected cache entry invalidated, got %v", entry2)
	}
}

func TestSharingDefaultEnabled(t *testing.T) {
	db := testDB(t)
	if !db.IsSharingEnabled("unconfigured-project") {
		t.Fatal("expected sharing enabled by default for unconfigured project")
	}
	if err := db.SetSharingEnabled("p1", false); err != nil {
		t.Fatalf("SetSharingEnabled: %v", err)
	}
	if db.IsSharingEnabled("p1") {
		t.Fatal("expected sharing disabled after SetSharingEnabled(false)")
	}
}

func TestShareDedup(t *testing.T) {
	db := testDB(t)
	id1, err := db.Share("p1", "p2", "mem1", 0.9)
	if err != nil {
		t.Fatalf("Share: %v", err)
	}
	id2, err := db.Share("p1", "p2", "mem1", 0.5)
	if err != nil {
		t.Fatalf("Share dedup: %v", err)
	}
	if id1 != id2 {
		t.Fatalf("expected dedup to return same id, got %s and %s", id1, id2)
	}
}
