package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var shareRelevance float64

var shareCmd = &cobra.Command{
	Use:   "share <memory-id> <target-project>",
	Short: "Share a memory into another project's context",
	Args:  cobra.ExactArgs(2),
	Run:   runShare,
}

func init() {
	shareCmd.Flags().Float64Var(&shareRelevance, "relevance", 0.5, "Relevance score for the shared insight, 0 to 1")
}

func runShare(cmd *cobra.Command, args []string) {
	memoryID, targetProject := args[0], args[1]

	a, err := openApp()
	if err != nil {
		dieOnError(err)
		return
	}
	defer a.Close()

	meta, err := a.mem.ReadMeta(memoryID)
	if err != nil {
		dieOnError(err)
		return
	}

	id, err := a.sharer.Share(meta.Project, targetProject, memoryID, shareRelevance)
	if err != nil {
		dieOnError(err)
		return
	}

	fmt.Printf("shared %s -> %s as %s\n", memoryID, targetProject, id)
}

var sharedCmd = &cobra.Command{
	Use:   "shared <project>",
	Short: "List memories shared into a project",
	Args:  cobra.ExactArgs(1),
	Run:   runShared,
}

func runShared(cmd *cobra.Command, args []string) {
	project := args[0]

	a, err := openApp()
	if err != nil {
		dieOnError(err)
		return
	}
	defer a.Close()

	insights, err := a.sharer.SharedWith(project)
	if err != nil {
		dieOnError(err)
		return
	}

	if len(insights) == 0 {
		fmt.Println("No insights shared into this project.")
		return
	}

	for i, ins := range insights {
		fmt.Printf("%d. %s <- %s (relevance %.2f)\n", i+1, ins.MemoryID, ins.SourceProject, ins.RelevanceScore)
	}
}
