package consolidate

import (
	"regexp"
	"strings"
)

// DedupRatio is the bidirectional word-overlap threshold above which
// two memories are considered duplicates, per spec.md §4.F.
const DedupRatio = 0.70

var punctuationRe = regexp.MustCompile(`[^\w\s]`)

func normalizeWords(text string) map[string]struct{} {
	clean := punctuationRe.ReplaceAllString(strings.ToLower(text), " ")
	out := map[string]struct{}{}
	for _, w := range strings.Fields(clean) {
		out[w] = struct{}{}
	}
	return out
}

func overlapRatio(a, b map[string]struct{}) (aSim, bSim float64) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}
	overlap := 0
	for w := range a {
		if _, ok := b[w]; ok {
			overlap++
		}
	}
	return float64(overlap) / float64(len(a)), float64(overlap) / float64(len(b))
}

// IsDuplicate reports whether candidate overlaps existingContent enough
// in either direction to be considered the same memory.
func IsDuplicate(candidate, existingContent string) bool {
	a := normalizeWords(candidate)
	b := normalizeWords(existingContent)
	aSim, bSim := overlapRatio(a, b)
	return aSim >= DedupRatio || bSim >= DedupRatio
}

// ExistingMemo is a previously stored memory consulted during
// deduplication, carrying enough identity that a matching candidate
// can reinforce it rather than being dropped outright.
type ExistingMemo struct {
	ID      string
	Content string
	Project string
}

// DuplicateMatch names the stored memory a candidate restated closely
// enough to count as the same learning, per spec.md §4.F step 4/6.
type DuplicateMatch struct {
	Candidate      Candidate
	MatchedID      string
	MatchedProject string
}

// Deduplicate splits candidates into those worth persisting as new
// memories and those that restate something already stored. The
// latter are reported in matches, naming the existing memory each one
// restates, so the caller can reinforce it instead of silently
// dropping the observation. Candidates that only duplicate an earlier
// candidate in the same batch (no stored memory to reinforce) are
// dropped with no match recorded.
func Deduplicate(candidates []Candidate, existing []ExistingMemo) (unique []Candidate, matches []DuplicateMatch) {
	var acceptedContent []string

	for _, c := range candidates {
		words := normalizeWords(c.Content)
		if len(words) == 0 {
			continue
		}

		matchedExisting := false
		for _, e := range existing {
			if IsDuplicate(c.Content, e.Content) {
				matches = append(matches, DuplicateMatch{Candidate: c, MatchedID: e.ID, MatchedProject: e.Project})
				matchedExisting = true
				break
			}
		}
		if matchedExisting {
			continue
		}

		dupInBatch := false
		for _, a := range acceptedContent {
			if IsDuplicate(c.Content, a) {
				dupInBatch = true
				break
			}
		}
		if dupInBatch {
			continue
		}

		unique = append(unique, c)
		acceptedContent = append(acceptedContent, c.Content)
	}
	return unique, matches
}
