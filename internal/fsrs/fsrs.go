// Package fsrs implements the FSRS-inspired spaced-repetition
// scheduler: stability/difficulty state, grading, and the due-review
// priority queue, per spec.md §4.G.
package fsrs

import (
	"math"
	"sort"
	"time"

	"github.com/localmem/memsys/internal/store"
)

// Grade is one of the four review outcomes.
type Grade string

const (
	Fail Grade = "FAIL"
	Hard Grade = "HARD"
	Good Grade = "GOOD"
	Easy Grade = "EASY"
)

var stabilityMultiplier = map[Grade]float64{
	Fail: 0.5,
	Hard: 0.8,
	Good: 1.5,
	Easy: 2.2,
}

var difficultyDrift = map[Grade]float64{
	Fail: 1.0,
	Hard: 0.5,
	Good: -0.25,
	Easy: -0.5,
}

// Scheduler wires FSRS state transitions to the sidecar DB.
type Scheduler struct {
	db *store.DB
}

// New returns a Scheduler backed by db.
func New(db *store.DB) *Scheduler {
	return &Scheduler{db: db}
}

// RecordReview applies grade to memoryID's scheduler state, appends a
// review history row, and reports whether this review introduced a new
// project to the validated set.
func (s *Scheduler) RecordReview(memoryID, grade, project string) (newProject bool, err error) {
	g := Grade(grade)
	mult, ok := stabilityMultiplier[g]
	if !ok {
		mult = 1.0
	}
	drift := difficultyDrift[g]

	state, err := s.db.GetFSRSState(memoryID)
	if err != nil {
		return false, err
	}

	stabBefore := state.Stability
	diffBefore := state.Difficulty
	intervalBefore := currentIntervalDays(state)

	newStability := clampMin(stabBefore*mult, 0.1)
	newDifficulty := clampRange(diffBefore+drift, 1, 10)

	intervalAfter := int(math.Round(newStability))
	if intervalAfter < 1 {
		intervalAfter = 1
	}
	// Cold-start doubling: a memory with no prior reviews gets its
	// interval doubled rather than relying on a stability value that
	// hasn't been calibrated by any real review yet.
	if state.ReviewCount == 0 {
		intervalAfter = intervalBefore * 2
		if intervalAfter < 1 {
			intervalAfter = 1
		}
	}

	now := time.Now()
	state.Stability = newStability
	state.Difficulty = newDifficulty
	state.LastReviewed.Int64 = now.UnixMilli()
	state.LastReviewed.Valid = true
	state.NextDue.Int64 = now.AddDate(0, 0, intervalAfter).UnixMilli()
	state.NextDue.Valid = true
	state.ReviewCount++

	newProject = project != "" && !contains(state.ValidatedProjects, project)
	if newProject {
		state.ValidatedProjects = append(state.ValidatedProjects, project)
	}

	if err := s.db.AppendReviewHistory(state, string(g), stabBefore, newStability, diffBefore, newDifficulty, intervalBefore, intervalAfter); err != nil {
		return false, err
	}
	return newProject, nil
}

// State returns the current scheduler state for a memory.
func (s *Scheduler) State(memoryID string) (*store.FSRSState, error) {
	return s.db.GetFSRSState(memoryID)
}

// DueItem is a candidate surfaced by the due-review queue.
type DueItem struct {
	MemoryID    string
	DaysOverdue float64
	Priority    float64
}

// DueReviews orders memories by `priority = max(0,days_overdue)*2 +
// importance*100` descending, per spec.md §4.G. importanceOf is a
// caller-supplied lookup since importance lives in the markdown
// frontmatter, not the sidecar DB.
func (s *Scheduler) DueReviews(limit int, importanceOf func(memoryID string) float64) ([]DueItem, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.DueReviews(0) // caller-side limit applied after priority sort
	if err != nil {
		return nil, err
	}

	now := time.Now()
	items := make([]DueItem, 0, len(rows))
	for _, r := range rows {
		due := time.UnixMilli(r.NextDue)
		daysOverdue := now.Sub(due).Hours() / 24
		if daysOverdue < 0 {
			daysOverdue = 0
		}
		imp := 0.0
		if importanceOf != nil {
			imp = importanceOf(r.MemoryID)
		}
		items = append(items, DueItem{
			MemoryID:    r.MemoryID,
			DaysOverdue: daysOverdue,
			Priority:    daysOverdue*2 + imp*100,
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Priority > items[j].Priority })
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func currentIntervalDays(state *store.FSRSState) int {
	if !state.LastReviewed.Valid || !state.NextDue.Valid {
		return 1
	}
	days := (state.NextDue.Int64 - state.LastReviewed.Int64) / (1000 * 60 * 60 * 24)
	if days < 1 {
		return 1
	}
	return int(days)
}

func clampMin(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}

func clampRange(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
