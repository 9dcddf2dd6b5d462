package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/localmem/memsys/internal/maintenance"
	"github.com/spf13/cobra"
)

var (
	freshnessScan    bool
	freshnessRefresh string
	freshnessArchive string
	freshnessReview  bool
	freshnessProject string
	freshnessMax     int
)

var freshnessCmd = &cobra.Command{
	Use:   "freshness",
	Short: "Review stale, low-importance memories",
	Long:  "Scans for memories that haven't been touched in a while and are still low-importance, then optionally refreshes or archives them.",
	Run:   runFreshness,
}

func init() {
	freshnessCmd.Flags().BoolVar(&freshnessScan, "scan", false, "List stale candidates and exit")
	freshnessCmd.Flags().StringVar(&freshnessRefresh, "refresh", "", "Refresh (reinforce) a memory by id")
	freshnessCmd.Flags().StringVar(&freshnessArchive, "archive", "", "Archive a memory by id")
	freshnessCmd.Flags().BoolVar(&freshnessReview, "review", false, "Walk stale candidates interactively")
	freshnessCmd.Flags().StringVar(&freshnessProject, "project", "", "Restrict to a project")
	freshnessCmd.Flags().IntVarP(&freshnessMax, "limit", "n", maintenance.DefaultMaxReview, "Maximum candidates to review")
}

func runFreshness(cmd *cobra.Command, args []string) {
	a, err := openApp()
	if err != nil {
		dieOnError(err)
		return
	}
	defer a.Close()

	if freshnessRefresh != "" {
		if err := a.maint.RefreshMemory(freshnessRefresh); err != nil {
			dieOnError(err)
			return
		}
		fmt.Printf("refreshed %s\n", freshnessRefresh)
		return
	}

	if freshnessArchive != "" {
		if err := a.maint.ArchiveMemory(freshnessArchive, "archived via freshness command"); err != nil {
			dieOnError(err)
			return
		}
		fmt.Printf("archived %s\n", freshnessArchive)
		return
	}

	stale, err := a.maint.ScanStale(maintenance.FreshnessOptions{Project: freshnessProject})
	if err != nil {
		dieOnError(err)
		return
	}

	if len(stale) == 0 {
		fmt.Println("No stale memories found.")
		return
	}

	if freshnessReview {
		result, err := a.maint.InteractiveReview(stale, freshnessMax, os.Stdin, os.Stdout)
		if err != nil {
			dieOnError(err)
			return
		}
		fmt.Printf("\nreviewed %s, refreshed %s, archived %s, skipped %s\n",
			humanize.Comma(int64(result.Reviewed)), humanize.Comma(int64(result.Refreshed)),
			humanize.Comma(int64(result.Archived)), humanize.Comma(int64(result.Skipped)))
		return
	}

	// --scan or default: print the ranked candidate list.
	limit := freshnessMax
	if limit <= 0 || limit > len(stale) {
		limit = len(stale)
	}
	fmt.Printf("%s stale candidates (showing top %d):\n\n", humanize.Comma(int64(len(stale))), limit)
	for i, sm := range stale[:limit] {
		fmt.Printf("%d. %s [%s] importance=%.2f stale=%dd score=%.2f\n",
			i+1, sm.ID, sm.Project, sm.Importance, sm.DaysSinceTouch, sm.StalenessScore)
	}
}
