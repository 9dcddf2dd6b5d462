// Package graph implements the memory relationship graph: typed edges
// between memories, causal-chain tracing, and contradiction lookup,
// grounded on relationship_mapper.py and spec.md §4.I.
package graph

import (
	"fmt"

	"github.com/localmem/memsys/internal/store"
)

// EdgeTypes are the five relationship kinds the store schema accepts.
var EdgeTypes = map[string]bool{
	"causal":      true,
	"contradicts": true,
	"supports":    true,
	"requires":    true,
	"related":     true,
}

// Graph wraps the sidecar edges table with the higher-level operations
// spec.md §4.I names: linking, related lookup, causal chains, and
// contradiction detection.
type Graph struct {
	db *store.DB
}

// New returns a Graph backed by db.
func New(db *store.DB) *Graph {
	return &Graph{db: db}
}

// Link creates a typed relationship from fromID to toID. Duplicate
// (from,to,type) triples are silently ignored by the underlying
// UNIQUE constraint.
func (g *Graph) Link(fromID, toID, relType string, strength float64, evidence, createdBy string) error {
	if !EdgeTypes[relType] {
		return fmt.Errorf("graph: invalid relationship type %q", relType)
	}
	if strength < 0 || strength > 1 {
		return fmt.Errorf("graph: strength %v out of [0,1]", strength)
	}
	return g.db.LinkMemories(fromID, toID, relType, strength, evidence, createdBy)
}

// Related returns memories related to id, optionally filtered by type
// and direction ("out", "in", "both").
func (g *Graph) Related(id, relType, direction string) ([]store.Edge, error) {
	return g.db.GetRelated(id, store.EdgeFilter{Type: relType, Direction: direction})
}

// Contradictions returns edges of type "contradicts" touching id in
// either direction.
func (g *Graph) Contradictions(id string) ([]store.Edge, error) {
	return g.db.GetRelated(id, store.EdgeFilter{Type: "contradicts", Direction: "both"})
}

// CausalChain runs a breadth-first search over causal-typed outgoing
// edges to find the shortest path from startID to endID, bounded by
// maxDepth nodes on the path (maxDepth-1 edges). Returns nil if no path
// exists within the bound.
func (g *Graph) CausalChain(startID, endID string, maxDepth int) ([]string, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if startID == endID {
		return []string{startID}, nil
	}

	type node struct {
		id   string
		path []string
	}
	queue := []node{{id: startID, path: []string{startID}}}
	visited := map[string]bool{startID: true}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(cur.path) > maxDepth {
			continue
		}
		if cur.id == endID {
			return cur.path, nil
		}

		neighbors, err := g.db.OutgoingCausal(cur.id)
		if err != nil {
			return nil, fmt.Errorf("causal chain from %s: %w", cur.id, err)
		}
		for _, n := range neighbors {
			if visited[n] {
				continue
			}
			visited[n] = true
			nextPath := make([]string, len(cur.path)+1)
			copy(nextPath, cur.path)
			nextPath[len(cur.path)] = n
			queue = append(queue, node{id: n, path: nextPath})
		}
	}
	return nil, nil
}

// Stats reports graph-wide and per-memory relationship counts.
func (g *Graph) Stats(id string) (*store.EdgeStats, error) {
	return g.db.EdgeStats(id)
}
