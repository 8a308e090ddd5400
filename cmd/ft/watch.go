package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/filetrail/filetrail/internal/index"
	"github.com/filetrail/filetrail/internal/logging"
	"github.com/filetrail/filetrail/internal/ui"
	"github.com/filetrail/filetrail/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch tracked files and snapshot changes (foreground)",
	Long: `Watch every tracked file and commit a snapshot each time a burst of
writes settles. Runs in the foreground until interrupted.

Each change is debounced: rapid successive writes within the debounce
window collapse into a single snapshot reflecting the final content.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustConfig()
		reg := mustRegistry(cfg)
		st := mustStore(cfg)
		logger := logging.New(cfg, "[watch] ")
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

		mgr, err := watcher.NewManager(st, &watcher.Config{
			Debounce: cfg.Debounce,
			Logger:   logger,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating watcher: %v\n", err)
			os.Exit(1)
		}

		mgr.RegisterNotify(func(slug, file string) {
			snap := st.LatestSnapshot(ctx, slug, file)
			if snap == nil {
				return
			}
			if err := idx.UpsertSnapshot(ctx, slug, *snap); err != nil {
				logger.Printf("index update failed for %s/%s: %v", slug, file, err)
			}
		})

		projects := reg.Projects()
		if len(projects) == 0 {
			fmt.Printf("%s No tracked files. Use 'ft track <file>' first.\n", ui.RenderWarn("⚠"))
			mgr.StopAll()
			return
		}

		watched := 0
		for _, p := range projects {
			if err := mgr.StartWatching(p); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
				continue
			}
			watched += len(p.Files)
		}

		fmt.Printf("%s Watching %d file(s) across %d project(s)\n",
			ui.RenderAccent("👁"), watched, len(projects))
		fmt.Printf("Press Ctrl+C to stop\n\n")

		runCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer cancel()

		mgr.Run(runCtx)
		fmt.Printf("\n%s Stopped\n", ui.RenderPass("✓"))
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
