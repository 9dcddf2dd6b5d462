package graph

import (
	"context"
	"testing"

	"github.com/localmem/memsys/internal/llm"
	"github.com/localmem/memsys/internal/memory"
)

func TestScanMemoryLinksFlaggedContradiction(t *testing.T) {
	g := testGraph(t)
	mem, err := memory.New(t.TempDir())
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}

	oldID, err := mem.Create(
		"the deploy pipeline runs on Jenkins",
		memory.ScopeProject, "p1", nil, 0.6, "s0",
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	newID, err := mem.Create(
		"the deploy pipeline runs on GitHub Actions, not Jenkins",
		memory.ScopeProject, "p1", nil, 0.6, "s1",
	)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mock := &llm.MockClient{Response: &llm.Response{
		Content: `[{"other_id": "` + oldID + `", "confidence": 0.9, "evidence": "pipeline tool changed"}]`,
	}}
	d := NewContradictionDetector(g, mem, mock, nil, 0.75)

	n, err := d.ScanMemory(context.Background(), newID, "p1")
	if err != nil {
		t.Fatalf("ScanMemory: %v", err)
	}
	if n != 1 {
		t.Fatalf("edges created = %d, want 1", n)
	}

	edges, err := g.Contradictions(newID)
	if err != nil {
		t.Fatalf("Contradictions: %v", err)
	}
	if len(edges) != 1 {
		t.Fatalf("Contradictions(%s) = %d edges, want 1", newID, len(edges))
	}
}

func TestScanMemoryDropsBelowConfidenceThreshold(t *testing.T) {
	g := testGraph(t)
	mem, err := memory.New(t.TempDir())
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}

	oldID, err := mem.Create("the deploy pipeline runs on Jenkins", memory.ScopeProject, "p1", nil, 0.6, "s0")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	newID, err := mem.Create("the deploy pipeline runs on GitHub Actions, not Jenkins", memory.ScopeProject, "p1", nil, 0.6, "s1")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	mock := &llm.MockClient{Response: &llm.Response{
		Content: `[{"other_id": "` + oldID + `", "confidence": 0.4, "evidence": "weak signal"}]`,
	}}
	d := NewContradictionDetector(g, mem, mock, nil, 0.75)

	n, err := d.ScanMemory(context.Background(), newID, "p1")
	if err != nil {
		t.Fatalf("ScanMemory: %v", err)
	}
	if n != 0 {
		t.Fatalf("edges created = %d, want 0 (confidence below threshold)", n)
	}
}

func TestScanMemoryNoopWithoutLLMClient(t *testing.T) {
	g := testGraph(t)
	mem, err := memory.New(t.TempDir())
	if err != nil {
		t.Fatalf("memory.New: %v", err)
	}
	id, err := mem.Create("anything", memory.ScopeProject, "p1", nil, 0.6, "s0")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	d := NewContradictionDetector(g, mem, nil, nil, 0.75)
	n, err := d.ScanMemory(context.Background(), id, "p1")
	if err != nil {
		t.Fatalf("ScanMemory: %v", err)
	}
	if n != 0 {
		t.Fatalf("edges created = %d, want 0", n)
	}
}
