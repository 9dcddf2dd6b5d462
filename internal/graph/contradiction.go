package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/localmem/memsys/internal/breaker"
	"github.com/localmem/memsys/internal/llm"
	"github.com/localmem/memsys/internal/memory"
)

// candidateLimit bounds how many existing memories a contradiction
// scan sends to the LLM per new memory — the prompt cost scales with
// this, not with the project's total memory count.
const candidateLimit = 8

var punctuationRe = regexp.MustCompile(`[^\w\s]`)

func normalizeWords(text string) map[string]struct{} {
	clean := punctuationRe.ReplaceAllString(strings.ToLower(text), " ")
	out := map[string]struct{}{}
	for _, w := range strings.Fields(clean) {
		out[w] = struct{}{}
	}
	return out
}

func overlapRatio(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	overlap := 0
	for w := range a {
		if _, ok := b[w]; ok {
			overlap++
		}
	}
	aRatio := float64(overlap) / float64(len(a))
	bRatio := float64(overlap) / float64(len(b))
	if bRatio > aRatio {
		return bRatio
	}
	return aRatio
}

// ContradictionDetector implements spec.md §4.I's second edge source:
// an LLM-driven pass that flags stored memories conflicting with a
// freshly saved one, distinct from the consolidator's within-session
// correction linking. It is gated by the same breaker that guards
// every other outbound LLM call.
type ContradictionDetector struct {
	graph      *Graph
	mem        *memory.Store
	llmClient  llm.Client
	breaker    *breaker.Breaker
	confidence float64
}

// NewContradictionDetector returns a Detector. llmClient may be nil, in
// which case ScanMemory is a no-op. confidence defaults to the spec's
// literal 0.75 when zero.
func NewContradictionDetector(gr *Graph, mem *memory.Store, llmClient llm.Client, br *breaker.Breaker, confidence float64) *ContradictionDetector {
	if confidence <= 0 {
		confidence = 0.75
	}
	return &ContradictionDetector{graph: gr, mem: mem, llmClient: llmClient, breaker: br, confidence: confidence}
}

type scoredCandidate struct {
	id      string
	content string
	score   float64
}

type contradictionFlag struct {
	OtherID    string  `json:"other_id"`
	Confidence float64 `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

// ScanMemory compares newID's content against the project's other
// memories (ranked by word overlap, since an LLM call against every
// stored memory doesn't scale), asks the LLM which of the top
// candidates conflict, and links any flag at or above the configured
// confidence as a "contradicts" edge. Returns the number of edges
// created.
func (d *ContradictionDetector) ScanMemory(ctx context.Context, newID, project string) (int, error) {
	if d.llmClient == nil {
		return 0, nil
	}

	rec, err := d.mem.Read(newID)
	if err != nil {
		return 0, fmt.Errorf("contradiction scan: read %s: %w", newID, err)
	}

	metas, err := d.mem.List(memory.Filters{Project: project})
	if err != nil {
		return 0, fmt.Errorf("contradiction scan: list %s: %w", project, err)
	}

	target := normalizeWords(rec.Content)
	var candidates []scoredCandidate
	for _, m := range metas {
		if m.ID == newID {
			continue
		}
		other, err := d.mem.Read(m.ID)
		if err != nil {
			continue
		}
		score := overlapRatio(target, normalizeWords(other.Content))
		if score <= 0 {
			continue
		}
		candidates = append(candidates, scoredCandidate{id: m.ID, content: other.Content, score: score})
	}
	if len(candidates) == 0 {
		return 0, nil
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > candidateLimit {
		candidates = candidates[:candidateLimit]
	}

	flags, err := d.askLLM(ctx, rec.Content, candidates)
	if err != nil {
		log.Printf("graph: contradiction detection unavailable: %v", err)
		return 0, nil
	}

	created := 0
	for _, f := range flags {
		if f.Confidence < d.confidence {
			continue
		}
		if err := d.graph.Link(newID, f.OtherID, "contradicts", f.Confidence, f.Evidence, "contradiction-detector"); err != nil {
			log.Printf("graph: link contradiction %s -> %s: %v", newID, f.OtherID, err)
			continue
		}
		created++
	}
	return created, nil
}

func (d *ContradictionDetector) askLLM(ctx context.Context, content string, candidates []scoredCandidate) ([]contradictionFlag, error) {
	var sb strings.Builder
	for _, c := range candidates {
		fmt.Fprintf(&sb, "%s: %s\n", c.id, c.content)
	}
	prompt := llm.ContradictionPrompt(content, sb.String())

	var flags []contradictionFlag
	call := func() error {
		resp, err := d.llmClient.Complete(ctx, prompt)
		if err != nil {
			return err
		}
		return json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &flags)
	}

	var err error
	if d.breaker != nil {
		err = d.breaker.Call(call)
	} else {
		err = call()
	}
	return flags, err
}
