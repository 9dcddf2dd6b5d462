package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var (
	consolidateSessionID string
	consolidateProject   string
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate <transcript-path>",
	Short: "Extract and save memories from a session transcript",
	Args:  cobra.ExactArgs(1),
	Run:   runConsolidate,
}

func init() {
	consolidateCmd.Flags().StringVar(&consolidateSessionID, "session-id", "manual", "Session identifier to attribute saved memories to")
	consolidateCmd.Flags().StringVar(&consolidateProject, "project", "", "Project to attribute saved memories to")
}

func runConsolidate(cmd *cobra.Command, args []string) {
	transcriptPath := args[0]

	a, err := openApp()
	if err != nil {
		dieOnError(err)
		return
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	result, err := a.consolidator.ConsolidateSession(ctx, transcriptPath, consolidateSessionID, consolidateProject)
	if err != nil {
		dieOnError(err)
		return
	}

	fmt.Printf("extracted %d, saved %d, deduplicated %d\n",
		result.MemoriesExtracted, result.MemoriesSaved, result.MemoriesDeduplicated)
	fmt.Printf("quality: %.2f (%d/%d high-value)\n",
		result.Quality.QualityScore, result.Quality.HighValueCount, result.Quality.TotalMemories)
	for _, id := range result.SavedIDs {
		fmt.Printf("  %s\n", id)
	}
}
