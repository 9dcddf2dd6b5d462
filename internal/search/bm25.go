package search

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// BM25Index is an in-memory inverted-index lexical search structure.
type BM25Index struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	invertedIndex map[string]map[string]struct{}
	termFreqs     map[string]map[string]int
	docLengths    map[string]int

	totalDocs int
	totalLen  int

	stopWords map[string]struct{}
}

// NewBM25Index creates a BM25 index with the given k1/b tuning
// parameters, per spec.md §4.E.
func NewBM25Index(k1, b float64) *BM25Index {
	return &BM25Index{
		k1:            k1,
		b:             b,
		invertedIndex: make(map[string]map[string]struct{}),
		termFreqs:     make(map[string]map[string]int),
		docLengths:    make(map[string]int),
		stopWords:     defaultStopWords(),
	}
}

// IndexDocument adds or updates a memory's body text in the index.
func (idx *BM25Index) IndexDocument(memoryID, content string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, exists := idx.termFreqs[memoryID]; exists {
		idx.removeDocLocked(memoryID)
	}

	tokens := idx.tokenize(content)
	freqs := make(map[string]int)
	for _, token := range tokens {
		freqs[token]++
	}

	idx.termFreqs[memoryID] = freqs
	idx.docLengths[memoryID] = len(tokens)
	idx.totalDocs++
	idx.totalLen += len(tokens)

	for term := range freqs {
		if idx.invertedIndex[term] == nil {
			idx.invertedIndex[term] = make(map[string]struct{})
		}
		idx.invertedIndex[term][memoryID] = struct{}{}
	}
}

// RemoveDocument drops a memory from the index.
func (idx *BM25Index) RemoveDocument(memoryID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.removeDocLocked(memoryID)
}

func (idx *BM25Index) removeDocLocked(memoryID string) {
	freqs, exists := idx.termFreqs[memoryID]
	if !exists {
		return
	}
	for term := range freqs {
		if docs, ok := idx.invertedIndex[term]; ok {
			delete(docs, memoryID)
			if len(docs) == 0 {
				delete(idx.invertedIndex, term)
			}
		}
	}
	idx.totalLen -= idx.docLengths[memoryID]
	idx.totalDocs--
	delete(idx.termFreqs, memoryID)
	delete(idx.docLengths, memoryID)
}

// Scored is one BM25-ranked candidate.
type Scored struct {
	ID           string
	Score        float64
	MatchedTerms []string
}

// Search returns up to topK candidates ranked by BM25 score, optionally
// restricted to the allowed id set (nil means unrestricted).
func (idx *BM25Index) Search(query string, topK int, allowed map[string]struct{}) []Scored {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.totalDocs == 0 {
		return nil
	}
	queryTokens := idx.tokenize(query)
	if len(queryTokens) == 0 {
		return nil
	}
	avgDL := float64(idx.totalLen) / float64(idx.totalDocs)

	candidates := make(map[string]struct{}, len(idx.invertedIndex))
	for _, token := range queryTokens {
		if docs, ok := idx.invertedIndex[token]; ok {
			for id := range docs {
				if allowed != nil {
					if _, ok := allowed[id]; !ok {
						continue
					}
				}
				candidates[id] = struct{}{}
			}
		}
	}

	results := make([]Scored, 0, len(candidates))
	for id := range candidates {
		score, matched := idx.scoreLocked(id, queryTokens, avgDL)
		if score > 0 {
			results = append(results, Scored{ID: id, Score: score, MatchedTerms: matched})
		}
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}
	return results
}

// MaxScore returns the highest score across results, used to
// normalize BM25 scores into [0,1] for fusion with semantic similarity.
func MaxScore(results []Scored) float64 {
	var max float64
	for _, r := range results {
		if r.Score > max {
			max = r.Score
		}
	}
	return max
}

func (idx *BM25Index) scoreLocked(docID string, queryTokens []string, avgDL float64) (float64, []string) {
	docLen := float64(idx.docLengths[docID])
	freqs := idx.termFreqs[docID]
	var score float64
	var matched []string

	for _, term := range queryTokens {
		tf := float64(freqs[term])
		if tf == 0 {
			continue
		}
		matched = append(matched, term)
		n := float64(len(idx.invertedIndex[term]))
		idf := math.Log((float64(idx.totalDocs)-n+0.5)/(n+0.5) + 1.0)
		numerator := tf * (idx.k1 + 1)
		denominator := tf + idx.k1*(1-idx.b+idx.b*docLen/avgDL)
		score += idf * numerator / denominator
	}
	return score, matched
}

// Len reports the number of indexed documents.
func (idx *BM25Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.totalDocs
}

func (idx *BM25Index) tokenize(text string) []string {
	text = strings.ToLower(text)
	tokens := make([]string, 0, len(text)/4)
	var current strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				token := current.String()
				if _, isStop := idx.stopWords[token]; !isStop {
					tokens = append(tokens, token)
				}
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		token := current.String()
		if _, isStop := idx.stopWords[token]; !isStop {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func defaultStopWords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "is", "are", "was", "were", "be", "been", "being",
		"have", "has", "had", "do", "does", "did", "will", "would", "could",
		"should", "may", "might", "shall", "can", "to", "of", "in", "for",
		"on", "with", "at", "by", "from", "as", "into", "through", "and",
		"but", "or", "nor", "not", "so", "yet", "this", "that", "these",
		"those", "it", "its", "i", "you", "your",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
