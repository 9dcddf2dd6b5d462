// Package consolidate extracts durable memories from a session
// transcript: pattern-based extraction, optional LLM augmentation
// behind a circuit breaker, deduplication against what's already
// stored, and persistence, per spec.md §4.F.
package consolidate

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/localmem/memsys/internal/breaker"
	"github.com/localmem/memsys/internal/config"
	"github.com/localmem/memsys/internal/fsrs"
	"github.com/localmem/memsys/internal/graph"
	"github.com/localmem/memsys/internal/importance"
	"github.com/localmem/memsys/internal/llm"
	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/transcript"
)

// QualityScore summarizes how valuable a session's extracted memories
// were, per spec.md §4.F's literal formula.
type QualityScore struct {
	TotalMemories  int
	HighValueCount int // importance >= 0.7
	QualityScore   float64
}

// Result is the outcome of consolidating one session.
type Result struct {
	MemoriesExtracted     int
	MemoriesSaved         int
	MemoriesDeduplicated  int
	MemoriesReinforced    int
	ContradictionsFlagged int
	SavedIDs              []string
	Quality               QualityScore
}

// Reindexer is implemented by internal/search.Engine; consolidate
// depends on it only through this interface to avoid an import cycle.
type Reindexer interface {
	IndexMemory(ctx context.Context, rec *memory.Record) error
}

// Consolidator wires pattern extraction, optional LLM extraction, and
// persistence together.
type Consolidator struct {
	mem        *memory.Store
	llmClient  llm.Client
	breaker    *breaker.Breaker
	reindex    Reindexer
	review     *fsrs.Scheduler
	graph      *graph.Graph
	contradict *graph.ContradictionDetector
	memCfg     config.MemoryConfig
	useLLM     bool
}

// New returns a Consolidator. llmClient may be nil, in which case
// extraction is pattern-only and the contradiction detector is a no-op;
// br may be nil, in which case LLM calls run without a breaker. review
// and gr may be nil: deduplicated candidates are still dropped and the
// memories they restate still get their importance and
// reinforcement_count bump, but no FSRS review is recorded and no
// edges are linked.
// memCfg supplies the reinforcement cap/multiplier and contradiction
// confidence threshold spec.md §9 leaves configurable rather than
// fixed; a zero-value memCfg falls back to each one's own default.
func New(mem *memory.Store, llmClient llm.Client, br *breaker.Breaker, reindex Reindexer, review *fsrs.Scheduler, gr *graph.Graph, memCfg config.MemoryConfig, useLLM bool) *Consolidator {
	var contradict *graph.ContradictionDetector
	if gr != nil {
		contradict = graph.NewContradictionDetector(gr, mem, llmClient, br, memCfg.ContradictionConfidence)
	}
	return &Consolidator{mem: mem, llmClient: llmClient, breaker: br, reindex: reindex, review: review, graph: gr, contradict: contradict, memCfg: memCfg, useLLM: useLLM}
}

// ConsolidateSession reads a JSONL transcript, extracts candidate
// memories, deduplicates them against what's already stored for
// project, and persists the survivors.
func (c *Consolidator) ConsolidateSession(ctx context.Context, transcriptPath, sessionID, project string) (*Result, error) {
	entries, err := transcript.ParseFile(transcriptPath)
	if err != nil {
		return nil, fmt.Errorf("consolidate: read transcript: %w", err)
	}

	conversation := conversationText(entries)
	candidates := ExtractPatterns(conversation)

	if c.useLLM && c.llmClient != nil && len(conversation) > 200 {
		llmCandidates := c.extractWithLLM(ctx, transcript.Condense(entries))
		candidates = mergeCandidates(candidates, llmCandidates)
	}

	existing, err := c.mem.List(memory.Filters{Project: project})
	if err != nil {
		return nil, fmt.Errorf("consolidate: list existing: %w", err)
	}
	var existingMemos []ExistingMemo
	for _, m := range existing {
		rec, err := c.mem.Read(m.ID)
		if err != nil {
			continue
		}
		existingMemos = append(existingMemos, ExistingMemo{ID: m.ID, Content: rec.Content, Project: m.Project})
	}

	unique, dupMatches := Deduplicate(candidates, existingMemos)

	quality := ComputeQuality(candidates)

	for _, dm := range dupMatches {
		c.reinforce(dm, project)
	}

	var savedIDs []string
	var savedCandidates []Candidate
	contradictionsFlagged := 0
	for _, cand := range unique {
		id, err := c.mem.Create(cand.Content, memory.ScopeProject, project, cand.Tags, cand.Importance, sessionID)
		if err != nil {
			log.Printf("consolidate: save failed for candidate: %v", err)
			continue
		}
		savedIDs = append(savedIDs, id)
		savedCandidates = append(savedCandidates, cand)
		if c.reindex != nil {
			rec, err := c.mem.Read(id)
			if err == nil {
				if err := c.reindex.IndexMemory(ctx, rec); err != nil {
					log.Printf("consolidate: reindex failed for %s: %v", id, err)
				}
			}
		}
		if c.useLLM && c.contradict != nil {
			n, err := c.contradict.ScanMemory(ctx, id, project)
			if err != nil {
				log.Printf("consolidate: contradiction scan failed for %s: %v", id, err)
			}
			contradictionsFlagged += n
		}
	}

	if c.graph != nil {
		c.linkSessionEdges(savedIDs, savedCandidates, existingMemos)
	}

	return &Result{
		MemoriesExtracted:     len(candidates),
		MemoriesSaved:         len(savedIDs),
		MemoriesDeduplicated:  len(candidates) - len(unique),
		MemoriesReinforced:    len(dupMatches),
		ContradictionsFlagged: contradictionsFlagged,
		SavedIDs:              savedIDs,
		Quality:               quality,
	}, nil
}

// reinforce applies the spec's reinforcement event to a memory that a
// fresh candidate restated: bump importance toward the reinforcement
// cap, increment reinforcement_count, and record an FSRS review. The
// grade is GOOD when the restating session belongs to the same
// project as the matched memory, EASY when it crosses projects (a
// stronger signal — the learning held up somewhere new).
func (c *Consolidator) reinforce(dm DuplicateMatch, sessionProject string) {
	meta, err := c.mem.ReadMeta(dm.MatchedID)
	if err != nil {
		log.Printf("consolidate: reinforce %s: read meta: %v", dm.MatchedID, err)
		return
	}

	newImportance := importance.Reinforce(meta.Importance, c.memCfg.ReinforcementCap, c.memCfg.ReinforcementMultiplier)
	newCount := meta.ReinforcementCount + 1
	now := time.Now()
	if _, err := c.mem.Update(dm.MatchedID, memory.Patch{
		Importance:         &newImportance,
		ReinforcementCount: &newCount,
		LastReinforced:     &now,
	}); err != nil {
		log.Printf("consolidate: reinforce %s: update: %v", dm.MatchedID, err)
		return
	}

	if c.review == nil {
		return
	}
	grade := fsrs.Good
	if sessionProject != dm.MatchedProject {
		grade = fsrs.Easy
	}
	if _, err := c.review.RecordReview(dm.MatchedID, string(grade), sessionProject); err != nil {
		log.Printf("consolidate: reinforce %s: record review: %v", dm.MatchedID, err)
	}
}

// linkSessionEdges creates the within-session relationship edges
// spec.md §4.I names for the consolidator: corrections link to the
// existing memory they contradict, and learnings link to the
// session's decision (its first saved problem-solution candidate, if
// any).
func (c *Consolidator) linkSessionEdges(savedIDs []string, savedCandidates []Candidate, existingMemos []ExistingMemo) {
	decisionID := ""
	for i, cand := range savedCandidates {
		if hasTag(cand.Tags, "problem-solution") {
			decisionID = savedIDs[i]
			break
		}
	}

	for i, cand := range savedCandidates {
		switch {
		case hasTag(cand.Tags, "correction"):
			if matchID, strength := bestMatch(cand.Content, existingMemos); matchID != "" {
				if err := c.graph.Link(savedIDs[i], matchID, "contradicts", strength, cand.Content, "consolidator"); err != nil {
					log.Printf("consolidate: link correction %s: %v", savedIDs[i], err)
				}
			}
		case hasTag(cand.Tags, "learning") && decisionID != "" && decisionID != savedIDs[i]:
			if err := c.graph.Link(savedIDs[i], decisionID, "supports", 1.0, cand.Content, "consolidator"); err != nil {
				log.Printf("consolidate: link learning %s: %v", savedIDs[i], err)
			}
		}
	}
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// bestMatch returns the existing memo with the highest bidirectional
// word-overlap against content, below the dedup threshold (an exact
// duplicate would have been reinforced, not saved as a correction).
func bestMatch(content string, existingMemos []ExistingMemo) (id string, strength float64) {
	a := normalizeWords(content)
	for _, e := range existingMemos {
		aSim, bSim := overlapRatio(a, normalizeWords(e.Content))
		score := aSim
		if bSim > score {
			score = bSim
		}
		if score > strength {
			strength = score
			id = e.ID
		}
	}
	return id, strength
}

// ComputeQuality applies the literal quality formula spec.md §4.F
// names: 0.5*min(1, high_importance_count/3) + 0.5*mean(importances).
func ComputeQuality(candidates []Candidate) QualityScore {
	if len(candidates) == 0 {
		return QualityScore{}
	}
	var high int
	var sum float64
	for _, c := range candidates {
		sum += c.Importance
		if c.Importance >= 0.7 {
			high++
		}
	}
	mean := sum / float64(len(candidates))
	highFactor := float64(high) / 3.0
	if highFactor > 1 {
		highFactor = 1
	}
	score := 0.5*highFactor + 0.5*mean

	return QualityScore{
		TotalMemories:  len(candidates),
		HighValueCount: high,
		QualityScore:   score,
	}
}

func conversationText(entries []transcript.ParsedEntry) string {
	var parts []string
	for _, e := range entries {
		if e.Role != "user" && e.Role != "assistant" {
			continue
		}
		if e.Text == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %s", e.Role, e.Text))
	}
	return strings.Join(parts, "\n\n")
}

// llmExtraction mirrors the JSON shape named in llm.ExtractionPrompt.
type llmExtraction struct {
	Content    string   `json:"content"`
	Importance float64  `json:"importance"`
	Tags       []string `json:"tags"`
}

func (c *Consolidator) extractWithLLM(ctx context.Context, conversation string) []Candidate {
	var out []Candidate
	call := func() error {
		resp, err := c.llmClient.Complete(ctx, llm.ExtractionPrompt(truncate(conversation, 10000)))
		if err != nil {
			return err
		}
		var extracted []llmExtraction
		if err := json.Unmarshal([]byte(strings.TrimSpace(resp.Content)), &extracted); err != nil {
			return fmt.Errorf("decode llm extraction: %w", err)
		}
		for _, e := range extracted {
			if e.Content == "" {
				continue
			}
			imp := e.Importance
			if imp <= 0 {
				imp = 0.6
			}
			tags := e.Tags
			if len(tags) == 0 {
				tags = []string{"llm-extracted"}
			}
			out = append(out, Candidate{Content: e.Content, Importance: imp, Tags: tags})
		}
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Call(call)
	} else {
		err = call()
	}
	if err != nil {
		log.Printf("consolidate: llm extraction unavailable, falling back to patterns: %v", err)
		return nil
	}
	return out
}

// mergeCandidates combines pattern and LLM candidates, dropping LLM
// candidates that duplicate a pattern candidate.
func mergeCandidates(pattern, llmCandidates []Candidate) []Candidate {
	out := append([]Candidate{}, pattern...)
	for _, lc := range llmCandidates {
		dup := false
		for _, pc := range pattern {
			if IsDuplicate(lc.Content, pc.Content) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, lc)
		}
	}
	return out
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
