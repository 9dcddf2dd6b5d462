package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	relateStrength float64
	relateEvidence string
)

var relateCmd = &cobra.Command{
	Use:   "relate <from-id> <to-id> <type>",
	Short: "Link two memories in the relationship graph",
	Long:  "Link two memories with a typed edge: causal, contradicts, supports, requires, or related.",
	Args:  cobra.ExactArgs(3),
	Run:   runRelate,
}

func init() {
	relateCmd.Flags().Float64Var(&relateStrength, "strength", 1.0, "Edge strength, 0 to 1")
	relateCmd.Flags().StringVar(&relateEvidence, "evidence", "", "Free-text evidence for the edge")
}

func runRelate(cmd *cobra.Command, args []string) {
	fromID, toID, relType := args[0], args[1], args[2]

	a, err := openApp()
	if err != nil {
		dieOnError(err)
		return
	}
	defer a.Close()

	if err := a.graph.Link(fromID, toID, relType, relateStrength, relateEvidence, "cli"); err != nil {
		dieOnError(err)
		return
	}

	fmt.Printf("linked %s -[%s]-> %s\n", fromID, relType, toID)
}
