package promote

import (
	"fmt"

	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/store"
)

// Sharer wraps cross-project insight sharing: a lighter-weight
// recommendation than full promotion, enabled by default for every
// target project, which can opt out, per cross_project_sharing_db.py.
type Sharer struct {
	mem *memory.Store
	db  *store.DB
}

// NewSharer returns a Sharer.
func NewSharer(mem *memory.Store, db *store.DB) *Sharer {
	return &Sharer{mem: mem, db: db}
}

// Share recommends memoryID (owned by sourceProject) to targetProject
// with the given relevance score in [0,1]. It returns an error if
// targetProject has opted out of receiving shared insights.
func (s *Sharer) Share(sourceProject, targetProject, memoryID string, relevance float64) (string, error) {
	if relevance < 0 || relevance > 1 {
		return "", fmt.Errorf("sharing: relevance %v out of [0,1]", relevance)
	}
	if _, err := s.mem.ReadMeta(memoryID); err != nil {
		return "", fmt.Errorf("sharing: %w", err)
	}
	return s.db.Share(sourceProject, targetProject, memoryID, relevance)
}

// SharedWith returns every insight shared into targetProject, newest
// first.
func (s *Sharer) SharedWith(targetProject string) ([]store.SharedInsight, error) {
	return s.db.SharedWith(targetProject)
}

// SetEnabled toggles whether projectID accepts shared insights.
func (s *Sharer) SetEnabled(projectID string, enabled bool) error {
	return s.db.SetSharingEnabled(projectID, enabled)
}

// Stats reports how many insights sourceProject has shared, broken
// down by target project.
func (s *Sharer) Stats(sourceProject string) (total int, byTarget map[string]int, err error) {
	return s.db.SharingStats(sourceProject)
}
