package consolidate

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/localmem/memsys/internal/config"
	"github.com/localmem/memsys/internal/fsrs"
	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/store"
)

func writeTranscript(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.jsonl")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestExtractPatternsLearning(t *testing.T) {
	conv := "assistant: Today I learned that retry loops without jitter cause thundering herds under load."
	candidates := ExtractPatterns(conv)
	if len(candidates) == 0 {
		t.Fatal("expected at least one extracted candidate")
	}
}

func TestIsDuplicateBidirectional(t *testing.T) {
	a := "the circuit breaker opens after three failures"
	b := "circuit breaker opens after three consecutive failures in a row"
	if !IsDuplicate(a, b) {
		t.Fatal("expected high word overlap to be flagged as duplicate")
	}
}

func TestDeduplicateDropsOverlap(t *testing.T) {
	candidates := []Candidate{
		{Content: "the circuit breaker opens after three consecutive failures", Importance: 0.7},
		{Content: "circuit breaker opens after three failures consecutively", Importance: 0.6},
		{Content: "switched the deployment pipeline from jenkins to github actions", Importance: 0.6},
	}
	unique, matches := Deduplicate(candidates, nil)
	if len(unique) != 2 {
		t.Fatalf("len(unique) = %d, want 2", len(unique))
	}
	if len(matches) != 0 {
		t.Fatalf("len(matches) = %d, want 0 with no existing memos", len(matches))
	}
}

func TestDeduplicateMatchesExistingMemo(t *testing.T) {
	existing := []ExistingMemo{
		{ID: "m1", Content: "the circuit breaker opens after three consecutive failures", Project: "p1"},
	}
	candidates := []Candidate{
		{Content: "circuit breaker opens after three failures consecutively", Importance: 0.6},
	}
	unique, matches := Deduplicate(candidates, existing)
	if len(unique) != 0 {
		t.Fatalf("len(unique) = %d, want 0, candidate restates an existing memo", len(unique))
	}
	if len(matches) != 1 || matches[0].MatchedID != "m1" {
		t.Fatalf("matches = %+v, want a single match against m1", matches)
	}
}

func TestComputeQualityFormula(t *testing.T) {
	candidates := []Candidate{
		{Content: "a", Importance: 0.9},
		{Content: "b", Importance: 0.8},
		{Content: "c", Importance: 0.3},
	}
	q := ComputeQuality(candidates)
	// high=2, total=3, mean=(0.9+0.8+0.3)/3
	wantHighFactor := 2.0 / 3.0
	wantMean := (0.9 + 0.8 + 0.3) / 3.0
	want := 0.5*wantHighFactor + 0.5*wantMean
	if diff := q.QualityScore - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("QualityScore = %v, want %v", q.QualityScore, want)
	}
}

func TestConsolidateSessionSavesUniqueMemories(t *testing.T) {
	mem, err := memory.New(t.TempDir())
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	path := writeTranscript(t,
		`{"role":"assistant","content":"I discovered that the retry loop needed jitter to avoid thundering herds under heavy load."}`,
		`{"role":"user","content":"thanks, that makes sense"}`,
	)

	c := New(mem, nil, nil, nil, nil, nil, config.MemoryConfig{}, false)
	result, err := c.ConsolidateSession(context.Background(), path, "s1", "p1")
	if err != nil {
		t.Fatalf("ConsolidateSession: %v", err)
	}
	if result.MemoriesSaved == 0 {
		t.Fatal("expected at least one memory saved")
	}
	metas, err := mem.List(memory.Filters{Project: "p1"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(metas) != result.MemoriesSaved {
		t.Fatalf("stored %d memories, result reports %d saved", len(metas), result.MemoriesSaved)
	}
}

// TestConsolidateSessionReinforcesDuplicate covers scenario S2: a
// second session restating an already-stored learning must reinforce
// it (reinforcement_count, importance, FSRS state) instead of saving
// a second copy.
func TestConsolidateSessionReinforcesDuplicate(t *testing.T) {
	mem, err := memory.New(t.TempDir())
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer db.Close()
	review := fsrs.New(db)

	id, err := mem.Create(
		"I discovered that the retry loop needed jitter to avoid thundering herds under heavy load.",
		memory.ScopeProject, "p1", []string{"learning"}, 0.7, "s0",
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	path := writeTranscript(t,
		`{"role":"assistant","content":"I discovered that the retry loop needed jitter to avoid thundering herds under heavy load."}`,
	)

	memCfg := config.MemoryConfig{ReinforcementCap: 0.99, ReinforcementMultiplier: 1.2}
	c := New(mem, nil, nil, nil, review, nil, memCfg, false)
	result, err := c.ConsolidateSession(context.Background(), path, "s1", "p1")
	if err != nil {
		t.Fatalf("ConsolidateSession: %v", err)
	}
	if result.MemoriesSaved != 0 {
		t.Fatalf("MemoriesSaved = %d, want 0 (restates an existing memory)", result.MemoriesSaved)
	}
	if result.MemoriesReinforced != 1 {
		t.Fatalf("MemoriesReinforced = %d, want 1", result.MemoriesReinforced)
	}

	meta, err := mem.ReadMeta(id)
	if err != nil {
		t.Fatalf("ReadMeta: %v", err)
	}
	if meta.ReinforcementCount != 1 {
		t.Fatalf("ReinforcementCount = %d, want 1", meta.ReinforcementCount)
	}
	wantImportance := 0.7 * memCfg.ReinforcementMultiplier
	if diff := meta.Importance - wantImportance; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("Importance = %v, want %v (configured multiplier applied)", meta.Importance, wantImportance)
	}

	state, err := db.GetFSRSState(id)
	if err != nil {
		t.Fatalf("GetFSRSState: %v", err)
	}
	if state.ReviewCount != 1 {
		t.Fatalf("ReviewCount = %d, want 1", state.ReviewCount)
	}
}
