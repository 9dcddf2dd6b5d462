package maintenance

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/localmem/memsys/internal/memory"
)

const (
	// DefaultStaleDays is the minimum age before a memory is considered
	// for freshness review, per memory_freshness_reviewer.py.
	DefaultStaleDays = 90
	// DefaultMaxReviewImportance caps which memories surface for review
	// — anything above it is assumed still load-bearing.
	DefaultMaxReviewImportance = 0.3
	// DefaultMaxReview bounds an interactive review session.
	DefaultMaxReview = 10
)

// StaleMemory is one candidate surfaced by ScanStale, carrying the
// staleness_score the original computes as (days/30)*(1-importance).
type StaleMemory struct {
	ID             string
	Project        string
	Content        string
	Importance     float64
	DaysSinceTouch int
	StalenessScore float64
}

// FreshnessOptions configures a staleness scan.
type FreshnessOptions struct {
	StaleDays            int
	MaxImportance        float64
	IncludeAllImportance bool
	Project              string
}

// ScanStale finds active, non-archived memories that haven't been
// reinforced in StaleDays, ranked by staleness_score descending, per
// scan_stale_memories in memory_freshness_reviewer.py.
func (r *Runner) ScanStale(opts FreshnessOptions) ([]StaleMemory, error) {
	staleDays := opts.StaleDays
	if staleDays <= 0 {
		staleDays = DefaultStaleDays
	}
	maxImportance := opts.MaxImportance
	if maxImportance <= 0 {
		maxImportance = DefaultMaxReviewImportance
	}

	metas, err := r.mem.List(memory.Filters{Project: opts.Project})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	var out []StaleMemory
	for _, m := range metas {
		anchor := m.LastReinforced
		if anchor.IsZero() {
			anchor = m.Created
		}
		days := int(now.Sub(anchor).Hours() / 24)
		if days < staleDays {
			continue
		}
		if !opts.IncludeAllImportance && m.Importance > maxImportance {
			continue
		}
		score := (float64(days) / 30.0) * (1.0 - m.Importance)
		rec, err := r.mem.Read(m.ID)
		content := ""
		if err == nil {
			content = rec.Content
		}
		out = append(out, StaleMemory{
			ID:             m.ID,
			Project:        m.Project,
			Content:        content,
			Importance:     m.Importance,
			DaysSinceTouch: days,
			StalenessScore: score,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StalenessScore > out[j].StalenessScore
	})
	return out, nil
}

// RefreshMemory reinforces a stale memory in place, per refresh_memory.
func (r *Runner) RefreshMemory(id string) error {
	now := time.Now()
	meta, err := r.mem.ReadMeta(id)
	if err != nil {
		return err
	}
	count := meta.ReinforcementCount + 1
	_, err = r.mem.Update(id, memory.Patch{LastReinforced: &now, ReinforcementCount: &count})
	return err
}

// ArchiveMemory archives a stale memory, per archive_memory.
func (r *Runner) ArchiveMemory(id, reason string) error {
	if reason == "" {
		reason = "archived during freshness review"
	}
	return r.mem.Archive(id, reason)
}

// ReviewResult tallies the outcome of an interactive or batch
// freshness review, ported from the ReviewResult dataclass in
// memory_freshness_reviewer.py.
type ReviewResult struct {
	Reviewed  int
	Refreshed int
	Archived  int
	Skipped   int
	Details   []string
}

// InteractiveReview walks up to maxReview stale memories, prompting
// [r]efresh [a]rchive [s]kip [q]uit on w and reading the choice from
// in, per interactive_review.
func (r *Runner) InteractiveReview(stale []StaleMemory, maxReview int, in io.Reader, w io.Writer) (*ReviewResult, error) {
	if maxReview <= 0 {
		maxReview = DefaultMaxReview
	}
	result := &ReviewResult{}
	reader := bufio.NewReader(in)

	for i, sm := range stale {
		if i >= maxReview {
			break
		}
		result.Reviewed++
		fmt.Fprintf(w, "\n[%d/%d] %s (project=%s importance=%.2f stale=%dd score=%.2f)\n",
			i+1, min(maxReview, len(stale)), sm.ID, sm.Project, sm.Importance, sm.DaysSinceTouch, sm.StalenessScore)
		fmt.Fprintf(w, "%s\n", truncateForDisplay(sm.Content, 200))
		fmt.Fprint(w, "[r]efresh [a]rchive [s]kip [q]uit: ")

		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			break
		}
		choice := strings.ToLower(strings.TrimSpace(line))

		switch choice {
		case "r":
			if err := r.RefreshMemory(sm.ID); err != nil {
				fmt.Fprintf(w, "refresh failed: %v\n", err)
				result.Skipped++
				continue
			}
			result.Refreshed++
			result.Details = append(result.Details, sm.ID+": refreshed")
		case "a":
			if err := r.ArchiveMemory(sm.ID, "stale, archived during review"); err != nil {
				fmt.Fprintf(w, "archive failed: %v\n", err)
				result.Skipped++
				continue
			}
			result.Archived++
			result.Details = append(result.Details, sm.ID+": archived")
		case "q":
			return result, nil
		default:
			result.Skipped++
			result.Details = append(result.Details, sm.ID+": skipped")
		}
	}
	return result, nil
}

func truncateForDisplay(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
