package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/filetrail/filetrail/internal/ui"
)

var untrackCmd = &cobra.Command{
	Use:   "untrack <file>",
	Short: "Stop tracking a file",
	Long: `Remove a file from the registry. When a project's last watched file
is removed, the project entry itself is removed.

Snapshot history is kept; only the watch coverage changes. A running
'ft watch' picks the change up on its next start.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()
		reg := mustRegistry(cfg)

		slug, removed, err := reg.RemoveFile(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error untracking %s: %v\n", args[0], err)
			os.Exit(1)
		}

		if !removed {
			fmt.Printf("%s %s was not tracked\n", ui.RenderWarn("⚠"), args[0])
			return
		}

		fmt.Printf("%s Stopped tracking %s (project %s)\n", ui.RenderPass("✓"), args[0], slug)
	},
}

func init() {
	rootCmd.AddCommand(untrackCmd)
}
