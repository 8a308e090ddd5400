package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/filetrail/filetrail/internal/ui"
)

var restoreOut string

var restoreCmd = &cobra.Command{
	Use:   "restore <file> <revision>",
	Short: "Roll a file back to a snapshot",
	Long: `Overwrite the file with its content at the given snapshot. Use --out
to write somewhere else instead of the original location.

Restoring and then committing without further edits records no new
snapshot, since the restored content matches what was last stored.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()
		st := mustStore(cfg)

		slug, file, err := resolveTarget(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		dest := restoreOut
		if dest == "" {
			dest, err = filepath.Abs(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}

		if !st.Restore(context.Background(), slug, args[1], file, dest) {
			fmt.Fprintf(os.Stderr, "%s Failed to restore %s at %.12s\n",
				ui.RenderErr("✗"), args[0], args[1])
			os.Exit(1)
		}

		fmt.Printf("%s Restored %s to %.12s\n", ui.RenderPass("✓"), dest, args[1])
	},
}

func init() {
	restoreCmd.Flags().StringVar(&restoreOut, "out", "",
		"destination path (default: the original file)")
	rootCmd.AddCommand(restoreCmd)
}
