// Package promote evaluates and applies memory promotion: lifting a
// project-scoped memory to global scope once it has proven itself
// across enough reviews and projects, per spec.md §4.H.
package promote

import (
	"fmt"
	"time"

	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/store"
)

// Criteria are the literal thresholds spec.md §4.H names.
type Criteria struct {
	MinStability         float64
	MinReviewCount       int
	MinValidatedProjects int
}

// DefaultCriteria matches spec.md §4.H exactly.
var DefaultCriteria = Criteria{
	MinStability:         3.0,
	MinReviewCount:       3,
	MinValidatedProjects: 2,
}

// Engine applies promotion criteria against FSRS state and the
// markdown store.
type Engine struct {
	mem      *memory.Store
	db       *store.DB
	criteria Criteria
}

// New returns a promotion Engine using the default criteria.
func New(mem *memory.Store, db *store.DB) *Engine {
	return &Engine{mem: mem, db: db, criteria: DefaultCriteria}
}

// WithCriteria overrides the default thresholds.
func (e *Engine) WithCriteria(c Criteria) *Engine {
	e.criteria = c
	return e
}

// Eligible reports whether memoryID currently satisfies every
// promotion criterion, without mutating anything.
func (e *Engine) Eligible(memoryID string) (bool, error) {
	meta, err := e.mem.ReadMeta(memoryID)
	if err != nil {
		return false, err
	}
	if meta.Scope != memory.ScopeProject {
		return false, nil
	}
	if meta.Archived {
		return false, nil
	}
	state, err := e.db.GetFSRSState(memoryID)
	if err != nil {
		return false, err
	}
	if state.Stability < e.criteria.MinStability {
		return false, nil
	}
	if state.ReviewCount < e.criteria.MinReviewCount {
		return false, nil
	}
	if len(state.ValidatedProjects) < e.criteria.MinValidatedProjects {
		return false, nil
	}
	return true, nil
}

// Promote atomically flips a memory's scope to global and stamps
// promoted_at, invalidating any cached search results that reference
// it (the Store's OnWrite hook handles invalidation if registered).
// Eligibility is checked before the update, outside the per-id lock
// that Update takes, so the check and the write are two separate steps.
func (e *Engine) Promote(memoryID string) (*memory.Record, error) {
	ok, err := e.Eligible(memoryID)
	if err != nil {
		return nil, fmt.Errorf("promote %s: check eligibility: %w", memoryID, err)
	}
	if !ok {
		return nil, fmt.Errorf("promote %s: criteria not met", memoryID)
	}

	meta, err := e.mem.ReadMeta(memoryID)
	if err != nil {
		return nil, fmt.Errorf("promote %s: %w", memoryID, err)
	}
	tags := append(append([]string{}, meta.Tags...), "promoted")

	now := time.Now()
	global := memory.ScopeGlobal
	rec, err := e.mem.Update(memoryID, memory.Patch{
		Scope:      &global,
		PromotedAt: &now,
		Tags:       tags,
	})
	if err != nil {
		return nil, fmt.Errorf("promote %s: %w", memoryID, err)
	}
	return rec, nil
}

// Sweep scans every project-scoped, non-archived memory and promotes
// the ones that qualify, returning the ids it promoted.
func (e *Engine) Sweep(project string) ([]string, error) {
	metas, err := e.mem.List(memory.Filters{Project: project, Scope: memory.ScopeProject})
	if err != nil {
		return nil, fmt.Errorf("sweep list: %w", err)
	}
	var promoted []string
	for _, m := range metas {
		ok, err := e.Eligible(m.ID)
		if err != nil {
			continue
		}
		if !ok {
			continue
		}
		if _, err := e.Promote(m.ID); err != nil {
			continue
		}
		promoted = append(promoted, m.ID)
	}
	return promoted, nil
}
