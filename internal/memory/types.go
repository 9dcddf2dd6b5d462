// Package memory implements the durable markdown+frontmatter memory
// store: the source of truth for every knowledge record in the system.
package memory

import (
	"fmt"
	"time"
)

// Scope is the visibility of a memory.
type Scope string

const (
	ScopeProject Scope = "project"
	ScopeGlobal  Scope = "global"
)

// Meta holds every YAML frontmatter field for a memory file.
type Meta struct {
	ID                 string     `yaml:"id"`
	Scope              Scope      `yaml:"scope"`
	Project            string     `yaml:"project"`
	Tags               []string   `yaml:"tags,omitempty"`
	Importance         float64    `yaml:"importance"`
	Created            time.Time  `yaml:"created"`
	LastReinforced     time.Time  `yaml:"last_reinforced"`
	ReinforcementCount int        `yaml:"reinforcement_count"`
	SourceSession      string     `yaml:"source_session"`
	Archived           bool       `yaml:"archived"`
	ArchiveReason      string     `yaml:"archive_reason,omitempty"`
	PromotedAt         *time.Time `yaml:"promoted_at,omitempty"`
	SupersededBy       string     `yaml:"superseded_by,omitempty"`
}

// Validate checks the structural invariants every frontmatter block
// must satisfy before it is accepted as a real memory.
func (m *Meta) Validate() error {
	if m.ID == "" {
		return fmt.Errorf("memory: missing id")
	}
	if m.Scope != ScopeProject && m.Scope != ScopeGlobal {
		return fmt.Errorf("memory: invalid scope %q", m.Scope)
	}
	if m.Project == "" {
		return fmt.Errorf("memory: missing project")
	}
	if m.Importance < 0 || m.Importance > 1 {
		return fmt.Errorf("memory: importance %v out of [0,1]", m.Importance)
	}
	return nil
}

// Record is the fully parsed in-memory representation of a memory file.
type Record struct {
	Meta    Meta
	Content string
}

// HasTag reports whether the record carries the given tag.
func (r *Record) HasTag(tag string) bool {
	for _, t := range r.Meta.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag if not already present.
func (r *Record) AddTag(tag string) {
	if r.HasTag(tag) {
		return
	}
	r.Meta.Tags = append(r.Meta.Tags, tag)
}
