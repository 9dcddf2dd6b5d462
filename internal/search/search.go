// Package search implements hybrid semantic+lexical retrieval over the
// memory store: a BM25 lexical index fused with embedding cosine
// similarity, multi-factor ranking, result caching, and explainability,
// per spec.md §4.E.
package search

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/localmem/memsys/internal/config"
	"github.com/localmem/memsys/internal/embed"
	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/store"
)

// reindexWorkers bounds how many embedding computations Reindex runs
// concurrently, per spec.md §5's "consolidator and search are
// CPU-bound stages that may run on a worker pool."
const reindexWorkers = 4

// Result is one ranked, explainable search hit.
type Result struct {
	ID           string
	Score        float64
	Semantic     float64
	Keyword      float64
	Recency      float64
	Importance   float64
	Snippet      string
	MatchedTerms []string
	Reasons      []string
	FromCache    bool
}

// Engine ties the lexical index, embedder, markdown store, and sidecar
// DB together into one searchable surface.
type Engine struct {
	mem      *memory.Store
	db       *store.DB
	bm25     *BM25Index
	embedder embed.Embedder
	cfg      config.SearchConfig
}

// New returns an Engine. cfg should come from config.Config.Search.
func New(mem *memory.Store, db *store.DB, embedder embed.Embedder, cfg config.SearchConfig) *Engine {
	return &Engine{
		mem:      mem,
		db:       db,
		bm25:     NewBM25Index(1.5, 0.75),
		embedder: embedder,
		cfg:      cfg,
	}
}

// IndexMemory adds or refreshes a single memory in both the lexical
// index and the embedding sidecar table.
func (e *Engine) IndexMemory(ctx context.Context, rec *memory.Record) error {
	e.bm25.IndexDocument(rec.Meta.ID, rec.Content)

	vec, err := e.embedder.Embed(ctx, rec.Content)
	if err != nil {
		return fmt.Errorf("embed %s: %w", rec.Meta.ID, err)
	}
	return e.db.SaveVector(store.VectorRecord{
		MemoryID:    rec.Meta.ID,
		Embedding:   vec,
		Model:       e.embedder.Model(),
		Dimensions:  e.embedder.Dimensions(),
		ContentHash: contentHash(rec.Content),
		CreatedAt:   time.Now(),
	})
}

// RemoveMemory drops a memory from the lexical index and its vector.
func (e *Engine) RemoveMemory(id string) error {
	e.bm25.RemoveDocument(id)
	return e.db.DeleteVector(id)
}

// Reindex rebuilds the lexical index and embeddings for every memory
// matching filters, spreading the embedding calls across a bounded
// worker pool since each is an independent CPU/model-inference-bound
// unit of work. Individual embedding failures are logged and skipped
// rather than aborting the whole pass.
func (e *Engine) Reindex(ctx context.Context, filters memory.Filters) (int, error) {
	metas, err := e.mem.List(filters)
	if err != nil {
		return 0, fmt.Errorf("list for reindex: %w", err)
	}

	sem := semaphore.NewWeighted(reindexWorkers)
	var mu sync.Mutex
	n := 0

	var wg sync.WaitGroup
	for _, m := range metas {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			defer sem.Release(1)

			rec, err := e.mem.Read(id)
			if err != nil {
				log.Printf("search: reindex skip %s: %v", id, err)
				return
			}
			if err := e.IndexMemory(ctx, rec); err != nil {
				log.Printf("search: reindex skip %s: %v", id, err)
				return
			}
			mu.Lock()
			n++
			mu.Unlock()
		}(m.ID)
	}
	wg.Wait()

	return n, nil
}

// Query is one search request.
type Query struct {
	Text    string
	Filters memory.Filters
	Limit   int
}

// Search runs the hybrid fusion + multi-factor ranking pipeline,
// consulting the TTL cache first.
func (e *Engine) Search(ctx context.Context, q Query) ([]Result, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	fp := fingerprint(q)
	if cached, err := e.db.CacheGet(fp); err == nil && cached != nil {
		return e.fromCache(cached, limit), nil
	}

	allowedMetas, err := e.mem.List(q.Filters)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	metaByID := make(map[string]*memory.Meta, len(allowedMetas))
	allowed := make(map[string]struct{}, len(allowedMetas))
	for _, m := range allowedMetas {
		metaByID[m.ID] = m
		allowed[m.ID] = struct{}{}
	}
	if len(allowed) == 0 {
		_ = e.db.RecordSearch(q.Text, 0, "", 0)
		return nil, nil
	}

	topK := e.cfg.TopKBeforeRank
	if topK <= 0 {
		topK = 50
	}

	bm25Results := e.bm25.Search(q.Text, topK, allowed)
	maxBM25 := MaxScore(bm25Results)
	keywordScore := make(map[string]float64, len(bm25Results))
	matchedTerms := make(map[string][]string, len(bm25Results))
	for _, r := range bm25Results {
		if maxBM25 > 0 {
			keywordScore[r.ID] = r.Score / maxBM25
		}
		matchedTerms[r.ID] = r.MatchedTerms
	}

	semanticScore := map[string]float64{}
	if e.embedder != nil && q.Text != "" {
		qvec, err := e.embedder.Embed(ctx, q.Text)
		if err != nil {
			log.Printf("search: embed query failed, falling back to lexical-only: %v", err)
		} else {
			vectors, err := e.db.AllVectors()
			if err != nil {
				return nil, fmt.Errorf("load vectors: %w", err)
			}
			for _, v := range vectors {
				if _, ok := allowed[v.MemoryID]; !ok {
					continue
				}
				sim := embed.CosineSimilarity(qvec, v.Embedding)
				norm := (sim + 1) / 2
				if norm >= e.cfg.SimilarityFloor {
					semanticScore[v.MemoryID] = norm
				}
			}
		}
	}

	candidates := make(map[string]struct{}, len(semanticScore)+len(keywordScore))
	for id := range semanticScore {
		candidates[id] = struct{}{}
	}
	for id := range keywordScore {
		candidates[id] = struct{}{}
	}
	if len(candidates) == 0 {
		// Neither index has anything for this query yet (e.g. right
		// after ingestion, before reindexing) — fall back to a direct
		// substring scan over the allowed set so search still works.
		recs, err := e.mem.SearchBySubstring(q.Text, q.Filters)
		if err == nil {
			for _, r := range recs {
				candidates[r.Meta.ID] = struct{}{}
			}
		}
	}

	candidates = e.hybridFuse(candidates, semanticScore, keywordScore, topK)

	now := time.Now()
	results := make([]Result, 0, len(candidates))
	for id := range candidates {
		m := metaByID[id]
		if m == nil {
			continue
		}
		daysOld := now.Sub(m.Created).Hours() / 24
		recency := 1 - daysOld/365
		if recency < 0 {
			recency = 0
		}
		sem := semanticScore[id]
		kw := keywordScore[id]
		score := e.cfg.WeightSemantic*sem + e.cfg.WeightKeyword*kw + e.cfg.WeightRecency*recency + e.cfg.WeightImportance*m.Importance

		results = append(results, Result{
			ID:           id,
			Score:        score,
			Semantic:     sem,
			Keyword:      kw,
			Recency:      recency,
			Importance:   m.Importance,
			MatchedTerms: matchedTerms[id],
			Reasons:      explain(sem, kw, recency, m.Importance),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		if results[i].Importance != results[j].Importance {
			return results[i].Importance > results[j].Importance
		}
		if results[i].Recency != results[j].Recency {
			return results[i].Recency > results[j].Recency
		}
		return results[i].ID < results[j].ID
	})

	if len(results) > limit {
		results = results[:limit]
	}
	e.attachSnippets(results, q.Text)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ID
	}
	ttl := time.Duration(e.cfg.CacheTTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if err := e.db.CachePut(fp, ids, ttl); err != nil {
		log.Printf("search: cache put failed: %v", err)
	}
	_ = e.db.RecordSearch(q.Text, len(results), "", 0)

	return results, nil
}

// hybridFuse narrows candidates to the topK best by the spec's hybrid
// score (hybrid = HybridAlpha*semantic + (1-HybridAlpha)*bm25_norm),
// which both semanticScore and keywordScore already hold normalized to
// [0,1]. This is the candidate-selection stage spec.md §4.E names
// ahead of the separate multi-factor rerank that produces the final
// Score — it bounds how many candidates the recency/importance rerank
// has to consider once both indexes have contributed their opinion.
func (e *Engine) hybridFuse(candidates map[string]struct{}, semanticScore, keywordScore map[string]float64, topK int) map[string]struct{} {
	if len(candidates) <= topK {
		return candidates
	}

	alpha := e.cfg.HybridAlpha
	if alpha <= 0 {
		alpha = 0.7
	}

	type scored struct {
		id    string
		score float64
	}
	ranked := make([]scored, 0, len(candidates))
	for id := range candidates {
		hybrid := alpha*semanticScore[id] + (1-alpha)*keywordScore[id]
		ranked = append(ranked, scored{id: id, score: hybrid})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].id < ranked[j].id
	})

	out := make(map[string]struct{}, topK)
	for _, r := range ranked[:topK] {
		out[r.id] = struct{}{}
	}
	return out
}

// RecordSelection logs which result the caller actually used, for the
// analytics table spec.md §4.E asks to feed ranking tuning over time.
func (e *Engine) RecordSelection(query, selectedID string, position, resultCount int) error {
	return e.db.RecordSearch(query, resultCount, selectedID, position)
}

// InvalidateForID evicts every cached result list referencing id, per
// spec.md §4.E's write-triggered cache invalidation. Intended to be
// registered against memory.Store.OnWrite so every create/update/
// archive/restore keeps the cache consistent with the source of truth.
func (e *Engine) InvalidateForID(id string) error {
	return e.db.InvalidateCacheForID(id)
}

func (e *Engine) fromCache(entry *store.CacheEntry, limit int) []Result {
	ids := entry.MemoryIDs
	if len(ids) > limit {
		ids = ids[:limit]
	}
	out := make([]Result, 0, len(ids))
	for i, id := range ids {
		out = append(out, Result{
			ID:        id,
			Score:     1.0 / float64(1+i),
			FromCache: true,
			Reasons:   []string{"cache hit"},
		})
	}
	e.attachSnippets(out, "")
	return out
}

func (e *Engine) attachSnippets(results []Result, query string) {
	for i := range results {
		rec, err := e.mem.Read(results[i].ID)
		if err != nil {
			continue
		}
		results[i].Snippet = snippet(rec.Content, query, 160)
	}
}

func explain(sem, kw, recency, importance float64) []string {
	var reasons []string
	if sem >= 0.8 {
		reasons = append(reasons, "strong semantic match")
	}
	if kw >= 0.8 {
		reasons = append(reasons, "strong keyword match")
	}
	if recency >= 0.9 {
		reasons = append(reasons, "recent")
	}
	if importance >= 0.8 {
		reasons = append(reasons, "high importance")
	}
	return reasons
}

func snippet(content, query string, maxLen int) string {
	content = strings.TrimSpace(content)
	if query != "" {
		lower := strings.ToLower(content)
		idx := strings.Index(lower, strings.ToLower(query))
		if idx >= 0 {
			start := idx - maxLen/2
			if start < 0 {
				start = 0
			}
			end := start + maxLen
			if end > len(content) {
				end = len(content)
			}
			return strings.TrimSpace(content[start:end])
		}
	}
	if len(content) <= maxLen {
		return content
	}
	return strings.TrimSpace(content[:maxLen]) + "..."
}

func fingerprint(q Query) string {
	h := sha256.New()
	h.Write([]byte(q.Text))
	h.Write([]byte(q.Filters.Project))
	h.Write([]byte(q.Filters.Tag))
	h.Write([]byte(string(q.Filters.Scope)))
	fmt.Fprintf(h, "%v|%v|%d", q.Filters.MinImportance, q.Filters.IncludeArchived, q.Limit)
	return hex.EncodeToString(h.Sum(nil))
}

func contentHash(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}
