package maintenance

import (
	"github.com/localmem/memsys/internal/memory"
)

// Stats is a point-in-time snapshot of the memory store, ported from
// collect_stats in daily_memory_maintenance.py.
type Stats struct {
	TotalMemories       int
	HighImportanceCount int // importance >= 0.8
	AvgImportance       float64
	ProjectBreakdown    map[string]int
	TagDistribution     map[string]int
}

// CollectStats scans every memory (including archived ones, matching
// the original's unfiltered listing) and aggregates the snapshot.
func (r *Runner) CollectStats() (Stats, error) {
	metas, err := r.mem.List(memory.Filters{IncludeArchived: true})
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ProjectBreakdown: map[string]int{},
		TagDistribution:  map[string]int{},
	}
	var sum float64
	for _, m := range metas {
		stats.TotalMemories++
		sum += m.Importance
		if m.Importance >= 0.8 {
			stats.HighImportanceCount++
		}
		stats.ProjectBreakdown[m.Project]++
		for _, tag := range m.Tags {
			stats.TagDistribution[tag]++
		}
	}
	if stats.TotalMemories > 0 {
		stats.AvgImportance = sum / float64(stats.TotalMemories)
	}
	return stats, nil
}
