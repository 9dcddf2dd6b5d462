package cli

import (
	"fmt"
	"time"

	"github.com/localmem/memsys/internal/errs"
	"github.com/localmem/memsys/internal/fsrs"
	"github.com/spf13/cobra"
)

var reviewNextLimit int

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Spaced-repetition review of stored memories",
}

var reviewNextCmd = &cobra.Command{
	Use:   "next",
	Short: "List memories due for review",
	Run:   runReviewNext,
}

var reviewRecordCmd = &cobra.Command{
	Use:   "record <memory-id> <FAIL|HARD|GOOD|EASY>",
	Short: "Record a review grade for a memory",
	Args:  cobra.ExactArgs(2),
	Run:   runReviewRecord,
}

func init() {
	reviewNextCmd.Flags().IntVarP(&reviewNextLimit, "limit", "n", 10, "Maximum number of due items")
	reviewCmd.AddCommand(reviewNextCmd)
	reviewCmd.AddCommand(reviewRecordCmd)
}

func runReviewNext(cmd *cobra.Command, args []string) {
	a, err := openApp()
	if err != nil {
		dieOnError(err)
		return
	}
	defer a.Close()

	due, err := a.review.DueReviews(reviewNextLimit, func(memoryID string) float64 {
		meta, err := a.mem.ReadMeta(memoryID)
		if err != nil {
			return 0.5
		}
		return meta.Importance
	})
	if err != nil {
		dieOnError(err)
		return
	}

	if len(due) == 0 {
		fmt.Println("Nothing due for review.")
		return
	}

	for i, d := range due {
		fmt.Printf("%d. %s (overdue %.1f days, priority %.3f)\n", i+1, d.MemoryID, d.DaysOverdue, d.Priority)
	}
}

func runReviewRecord(cmd *cobra.Command, args []string) {
	memoryID, gradeArg := args[0], args[1]

	grade := fsrs.Grade(gradeArg)
	switch grade {
	case fsrs.Fail, fsrs.Hard, fsrs.Good, fsrs.Easy:
	default:
		dieOnError(fmt.Errorf("%w: grade must be one of FAIL, HARD, GOOD, EASY", errs.ErrInvalidInput))
		return
	}

	a, err := openApp()
	if err != nil {
		dieOnError(err)
		return
	}
	defer a.Close()

	meta, err := a.mem.ReadMeta(memoryID)
	if err != nil {
		dieOnError(fmt.Errorf("%w: %v", errs.ErrNotFound, err))
		return
	}

	newProject, err := a.review.RecordReview(memoryID, string(grade), meta.Project)
	if err != nil {
		dieOnError(err)
		return
	}

	fmt.Printf("recorded %s for %s at %s\n", grade, memoryID, time.Now().Format(time.RFC3339))
	if newProject {
		fmt.Printf("%s now counts as a validated project for this memory\n", meta.Project)
	}
}
