package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/filetrail/filetrail/internal/registry"
	"github.com/filetrail/filetrail/internal/ui"
)

var logProjectDir string

var logCmd = &cobra.Command{
	Use:   "log [file]",
	Short: "List snapshots, newest first",
	Long: `List the snapshot history for one file, or for a whole project with
--project. Each entry shows the revision, timestamp, line stats, and
commit summary.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()
		st := mustStore(cfg)
		ctx := context.Background()

		var slug, file string
		switch {
		case logProjectDir != "":
			abs, err := absDir(logProjectDir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			slug = registry.Slug(abs)
		case len(args) == 1:
			var err error
			slug, file, err = resolveTarget(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		default:
			fmt.Fprintf(os.Stderr, "Error: a file argument or --project is required\n")
			os.Exit(1)
		}

		snaps := st.Log(ctx, slug, file)
		if len(snaps) == 0 {
			fmt.Printf("%s No snapshots yet\n", ui.RenderWarn("⚠"))
			return
		}

		for _, snap := range snaps {
			fmt.Printf("%s  %s  %s  %s\n",
				ui.RenderAccent(fmt.Sprintf("%.12s", snap.Revision)),
				ui.RenderDim(snap.Time.Format("2006-01-02 15:04:05")),
				fmt.Sprintf("%s %s",
					ui.RenderPass(fmt.Sprintf("+%d", snap.LinesAdded)),
					ui.RenderErr(fmt.Sprintf("-%d", snap.LinesRemoved))),
				snap.Message)
		}
	},
}

func init() {
	logCmd.Flags().StringVar(&logProjectDir, "project", "",
		"show the combined history for a project directory")
	rootCmd.AddCommand(logCmd)
}
