package cli

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "memsys",
	Short: "Persistent memory for AI coding agents",
	Long:  "memsys gives AI coding agents a memory that persists across sessions: a markdown-backed store, a SQLite sidecar for search and spaced review, and a hook pipeline that keeps both current without blocking the agent.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(relateCmd)
	rootCmd.AddCommand(consolidateCmd)
	rootCmd.AddCommand(maintenanceCmd)
	rootCmd.AddCommand(freshnessCmd)
	rootCmd.AddCommand(shareCmd)
	rootCmd.AddCommand(sharedCmd)
}
