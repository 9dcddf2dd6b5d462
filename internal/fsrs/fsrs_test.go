package fsrs

import (
	"testing"

	"github.com/localmem/memsys/internal/store"
)

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordReviewGood(t *testing.T) {
	db := testDB(t)
	s := New(db)

	newProj, err := s.RecordReview("m1", "GOOD", "p1")
	if err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if !newProj {
		t.Fatal("expected first review to register a new project")
	}

	state, err := s.State("m1")
	if err != nil {
		t.Fatalf("State: %v", err)
	}
	if state.Stability != 1.5 {
		t.Fatalf("stability = %v, want 1.5 (1.0 cold-start * 1.5 GOOD multiplier)", state.Stability)
	}
	if state.ReviewCount != 1 {
		t.Fatalf("review_count = %d, want 1", state.ReviewCount)
	}
}

func TestRecordReviewCrossProjectEasy(t *testing.T) {
	db := testDB(t)
	s := New(db)
	_, _ = s.RecordReview("m1", "GOOD", "p1")
	newProj, err := s.RecordReview("m1", "EASY", "p2")
	if err != nil {
		t.Fatalf("RecordReview: %v", err)
	}
	if !newProj {
		t.Fatal("expected p2 to register as a new validated project")
	}
	state, _ := s.State("m1")
	if len(state.ValidatedProjects) != 2 {
		t.Fatalf("validated_projects = %v, want 2 entries", state.ValidatedProjects)
	}
}

func TestReviewHistoryMonotonic(t *testing.T) {
	db := testDB(t)
	s := New(db)
	_, _ = s.RecordReview("m1", "GOOD", "p1")
	_, _ = s.RecordReview("m1", "GOOD", "p1")
	rows, err := db.ReviewHistory("m1")
	if err != nil {
		t.Fatalf("ReviewHistory: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].ReviewedAt < rows[i-1].ReviewedAt {
			t.Fatal("review_history not monotonically increasing in time")
		}
	}
}

func TestDifficultyClampRange(t *testing.T) {
	db := testDB(t)
	s := New(db)
	for i := 0; i < 20; i++ {
		_, _ = s.RecordReview("m1", "FAIL", "p1")
	}
	state, _ := s.State("m1")
	if state.Difficulty > 10 {
		t.Fatalf("difficulty = %v, want clamped to <= 10", state.Difficulty)
	}
}
