package graph

import (
	"testing"

	"github.com/localmem/memsys/internal/store"
)

func testGraph(t *testing.T) *Graph {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return New(db)
}

func TestLinkRejectsInvalidType(t *testing.T) {
	g := testGraph(t)
	if err := g.Link("a", "b", "bogus", 0.5, "", ""); err == nil {
		t.Fatal("expected error for invalid relationship type")
	}
}

func TestLinkRejectsStrengthOutOfRange(t *testing.T) {
	g := testGraph(t)
	if err := g.Link("a", "b", "related", 1.5, "", ""); err == nil {
		t.Fatal("expected error for strength > 1")
	}
}

func TestCausalChainFindsShortestPath(t *testing.T) {
	g := testGraph(t)
	edges := [][2]string{{"a", "b"}, {"b", "c"}, {"a", "d"}, {"d", "c"}}
	for _, e := range edges {
		if err := g.Link(e[0], e[1], "causal", 0.9, "", ""); err != nil {
			t.Fatalf("Link: %v", err)
		}
	}
	path, err := g.CausalChain("a", "c", 5)
	if err != nil {
		t.Fatalf("CausalChain: %v", err)
	}
	if len(path) != 3 {
		t.Fatalf("path = %v, want length 3", path)
	}
	if path[0] != "a" || path[len(path)-1] != "c" {
		t.Fatalf("path = %v, want to start at a and end at c", path)
	}
}

func TestCausalChainRespectsMaxDepth(t *testing.T) {
	g := testGraph(t)
	_ = g.Link("a", "b", "causal", 0.9, "", "")
	_ = g.Link("b", "c", "causal", 0.9, "", "")
	_ = g.Link("c", "d", "causal", 0.9, "", "")
	path, err := g.CausalChain("a", "d", 2)
	if err != nil {
		t.Fatalf("CausalChain: %v", err)
	}
	if path != nil {
		t.Fatalf("expected no path within depth 2, got %v", path)
	}
}

func TestCausalChainNoPath(t *testing.T) {
	g := testGraph(t)
	_ = g.Link("a", "b", "causal", 0.9, "", "")
	path, err := g.CausalChain("a", "z", 5)
	if err != nil {
		t.Fatalf("CausalChain: %v", err)
	}
	if path != nil {
		t.Fatalf("expected nil path, got %v", path)
	}
}

func TestContradictionsBothDirections(t *testing.T) {
	g := testGraph(t)
	_ = g.Link("a", "b", "contradicts", 0.8, "different conclusions", "")
	found, err := g.Contradictions("b")
	if err != nil {
		t.Fatalf("Contradictions: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("len(found) = %d, want 1", len(found))
	}
}
