package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/localmem/memsys/internal/memory"
	"github.com/localmem/memsys/internal/search"
	"github.com/spf13/cobra"
)

var (
	searchProject       string
	searchTag           string
	searchMinImportance float64
	searchLimit         int
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search memories",
	Long:  "Search the memory store using hybrid semantic and keyword ranking.",
	Args:  cobra.MinimumNArgs(1),
	Run:   runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchProject, "project", "", "Filter by project")
	searchCmd.Flags().StringVar(&searchTag, "tag", "", "Filter by tag")
	searchCmd.Flags().Float64Var(&searchMinImportance, "min-importance", 0, "Minimum importance score")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "Maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) {
	query := strings.Join(args, " ")

	a, err := openApp()
	if err != nil {
		dieOnError(err)
		return
	}
	defer a.Close()

	filters := memory.Filters{Project: searchProject, MinImportance: searchMinImportance}
	if searchTag != "" {
		filters.Tag = searchTag
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	results, err := a.search.Search(ctx, search.Query{Text: query, Filters: filters, Limit: searchLimit})
	if err != nil {
		dieOnError(err)
		return
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return
	}

	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s\n", i+1, r.Score, r.ID)
		fmt.Printf("   %s\n", r.Snippet)
		if len(r.Reasons) > 0 {
			fmt.Printf("   (%s)\n", strings.Join(r.Reasons, ", "))
		}
		fmt.Println()
	}
}
