// Package maintenance implements the daily and weekly upkeep jobs:
// decay sweep, low-importance archival, health checks, stats
// snapshots, stale-memory freshness review, and the promotion sweep,
// per spec.md §4.J.
package maintenance

import (
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/localmem/memsys/internal/importance"
	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/promote"
	"github.com/localmem/memsys/internal/store"
)

// DailyResult summarizes one daily maintenance run.
type DailyResult struct {
	Timestamp     time.Time
	Duration      time.Duration
	DecayedCount  int
	ArchivedCount int
	Stats         Stats
	Health        Health
	DryRun        bool
}

// Summary renders a one-line human-readable report of a daily run,
// suitable for CLI output.
func (d *DailyResult) Summary() string {
	if !d.DryRun && d.Duration == 0 && d.DecayedCount == 0 && d.ArchivedCount == 0 && d.Stats.TotalMemories == 0 {
		return "maintenance: already ran for this window, nothing to do"
	}
	return fmt.Sprintf(
		"decayed %s, archived %s, %s memories total (%s high-importance), took %s",
		humanize.Comma(int64(d.DecayedCount)),
		humanize.Comma(int64(d.ArchivedCount)),
		humanize.Comma(int64(d.Stats.TotalMemories)),
		humanize.Comma(int64(d.Stats.HighImportanceCount)),
		d.Duration.Round(time.Millisecond),
	)
}

// Runner ties the markdown store and sidecar DB to the maintenance
// jobs, guarding each against double-execution within the same window
// via the sidecar's maintenance_runs table.
type Runner struct {
	mem      *memory.Store
	db       *store.DB
	promoter *promote.Engine

	staleThresholdDays int
	archiveThreshold   float64
}

// New returns a Runner. staleThresholdDays and archiveThreshold
// default to spec.md's literal 180 and 0.2 when zero.
func New(mem *memory.Store, db *store.DB, promoter *promote.Engine, staleThresholdDays int, archiveThreshold float64) *Runner {
	if staleThresholdDays <= 0 {
		staleThresholdDays = 180
	}
	if archiveThreshold <= 0 {
		archiveThreshold = 0.2
	}
	return &Runner{mem: mem, db: db, promoter: promoter, staleThresholdDays: staleThresholdDays, archiveThreshold: archiveThreshold}
}

// RunDaily applies decay, archives low-importance stale memories,
// collects stats, and runs a health check. windowKey identifies the
// day (e.g. "2026-08-06") so a second invocation in the same window is
// a no-op unless dryRun is set.
func (r *Runner) RunDaily(windowKey string, dryRun bool) (*DailyResult, error) {
	if !dryRun {
		already, err := r.db.AlreadyRan("daily", windowKey)
		if err != nil {
			return nil, fmt.Errorf("maintenance: check already ran: %w", err)
		}
		if already {
			log.Printf("maintenance: daily run for %s already completed, skipping", windowKey)
			return &DailyResult{Timestamp: time.Now(), DryRun: dryRun}, nil
		}
	}

	start := time.Now()

	decayed, err := r.applyDecay(dryRun)
	if err != nil {
		return nil, fmt.Errorf("maintenance: apply decay: %w", err)
	}

	archived, err := r.archiveLowImportance(dryRun)
	if err != nil {
		return nil, fmt.Errorf("maintenance: archive: %w", err)
	}

	// Stats and the health scan are both read-only passes over the
	// store, so they run concurrently rather than back to back.
	var stats Stats
	var health Health
	g := &errgroup.Group{}
	g.Go(func() error {
		s, err := r.CollectStats()
		stats = s
		return err
	})
	g.Go(func() error {
		h, err := r.HealthCheck()
		health = h
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("maintenance: stats/health scan: %w", err)
	}

	if !dryRun {
		if err := r.db.MarkRan("daily", windowKey, dryRun); err != nil {
			log.Printf("maintenance: mark ran failed: %v", err)
		}
	}

	return &DailyResult{
		Timestamp:     start,
		Duration:      time.Since(start),
		DecayedCount:  decayed,
		ArchivedCount: archived,
		Stats:         stats,
		Health:        health,
		DryRun:        dryRun,
	}, nil
}

// applyDecay applies importance.Decay to every non-archived memory
// based on days since last reinforcement, ported from
// apply_decay_to_all in daily_memory_maintenance.py.
func (r *Runner) applyDecay(dryRun bool) (int, error) {
	metas, err := r.mem.List(memory.Filters{})
	if err != nil {
		return 0, err
	}
	now := time.Now()
	count := 0
	for _, m := range metas {
		anchor := m.LastReinforced
		if anchor.IsZero() {
			anchor = m.Created
		}
		daysSince := int(now.Sub(anchor).Hours() / 24)
		if daysSince <= 0 {
			continue
		}
		newImportance := importance.Decay(m.Importance, daysSince)
		if newImportance == m.Importance {
			continue
		}
		if !dryRun {
			if _, err := r.mem.Update(m.ID, memory.Patch{Importance: &newImportance}); err != nil {
				log.Printf("maintenance: decay update failed for %s: %v", m.ID, err)
				continue
			}
		}
		count++
	}
	return count, nil
}

// archiveLowImportance archives memories below threshold, ported from
// archive_low_importance.
func (r *Runner) archiveLowImportance(dryRun bool) (int, error) {
	metas, err := r.mem.List(memory.Filters{})
	if err != nil {
		return 0, err
	}
	now := time.Now()
	count := 0
	for _, m := range metas {
		if m.Importance >= r.archiveThreshold {
			continue
		}
		anchor := m.LastReinforced
		if anchor.IsZero() {
			anchor = m.Created
		}
		daysSince := int(now.Sub(anchor).Hours() / 24)
		if daysSince <= r.staleThresholdDays {
			continue
		}
		if !dryRun {
			if err := r.mem.Archive(m.ID, "decayed"); err != nil {
				log.Printf("maintenance: archive failed for %s: %v", m.ID, err)
				continue
			}
		}
		count++
	}
	return count, nil
}

// RunWeeklyPromotion runs the promotion sweep, guarded by the same
// idempotency window as RunDaily.
func (r *Runner) RunWeeklyPromotion(windowKey, project string, dryRun bool) ([]string, error) {
	if r.promoter == nil {
		return nil, nil
	}
	if !dryRun {
		already, err := r.db.AlreadyRan("weekly-promotion", windowKey)
		if err != nil {
			return nil, err
		}
		if already {
			return nil, nil
		}
	}
	if dryRun {
		metas, err := r.mem.List(memory.Filters{Project: project, Scope: memory.ScopeProject})
		if err != nil {
			return nil, err
		}
		var eligible []string
		for _, m := range metas {
			ok, err := r.promoter.Eligible(m.ID)
			if err == nil && ok {
				eligible = append(eligible, m.ID)
			}
		}
		return eligible, nil
	}
	promoted, err := r.promoter.Sweep(project)
	if err != nil {
		return nil, err
	}
	if err := r.db.MarkRan("weekly-promotion", windowKey, dryRun); err != nil {
		log.Printf("maintenance: mark ran failed: %v", err)
	}
	return promoted, nil
}
