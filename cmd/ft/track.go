package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/filetrail/filetrail/internal/index"
	"github.com/filetrail/filetrail/internal/ui"
)

var trackCmd = &cobra.Command{
	Use:   "track <file>...",
	Short: "Start tracking files",
	Long: `Add files to the registry and take an initial snapshot of each.

The containing directory becomes a project (one snapshot repository per
project); tracking an already-tracked file is a no-op.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()
		reg := mustRegistry(cfg)
		st := mustStore(cfg)
		ctx := context.Background()

		idx, err := index.Open(cfg.IndexPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening index: %v\n", err)
			os.Exit(1)
		}
		defer idx.Close()
		if err := idx.InitSchema(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing index: %v\n", err)
			os.Exit(1)
		}

		for _, arg := range args {
			p, err := reg.AddFile(arg)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error tracking %s: %v\n", arg, err)
				os.Exit(1)
			}

			abs, _ := filepath.Abs(arg)
			rev, err := st.Commit(ctx, p.Slug, abs)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error snapshotting %s: %v\n", arg, err)
				os.Exit(1)
			}

			switch {
			case rev != "":
				if snap := st.LatestSnapshot(ctx, p.Slug, filepath.Base(abs)); snap != nil {
					if err := idx.UpsertSnapshot(ctx, p.Slug, *snap); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: index update failed: %v\n", err)
					}
				}
				fmt.Printf("%s Tracking %s (project %s, snapshot %.12s)\n",
					ui.RenderPass("✓"), arg, p.Slug, rev)
			default:
				fmt.Printf("%s Tracking %s (project %s, no new snapshot)\n",
					ui.RenderPass("✓"), arg, p.Slug)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)
}
