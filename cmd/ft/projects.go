package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filetrail/filetrail/internal/index"
	"github.com/filetrail/filetrail/internal/ui"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List tracked projects and their files",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()
		reg := mustRegistry(cfg)
		ctx := context.Background()

		projects := reg.Projects()
		if len(projects) == 0 {
			fmt.Printf("%s No tracked files\n", ui.RenderWarn("⚠"))
			return
		}

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

		for _, p := range projects {
			count, err := idx.Count(ctx, p.Slug, "")
			if err != nil {
				count = 0
			}

			fmt.Printf("%s %s\n", ui.RenderAccent(p.Slug), ui.RenderDim(p.Directory))
			fmt.Printf("  files: %s\n", strings.Join(p.Files, ", "))
			fmt.Printf("  snapshots: %d\n", count)

			if latest, err := idx.Latest(ctx, p.Slug); err == nil && latest != nil {
				fmt.Printf("  latest: %s %s %s\n",
					ui.RenderDim(fmt.Sprintf("%.12s", latest.Revision)),
					latest.Time.Format("2006-01-02 15:04:05"),
					latest.Message)
			}
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(projectsCmd)
}
