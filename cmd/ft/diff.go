package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <file> <revision>",
	Short: "Show the change a snapshot introduced",
	Long: `Show the unified diff a snapshot introduced relative to its immediate
predecessor. For the first snapshot of a file the entire content appears
as additions.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()
		st := mustStore(cfg)

		slug, file, err := resolveTarget(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		fmt.Println(st.Diff(context.Background(), slug, args[1], file))
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}
