package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/filetrail/filetrail/internal/config"
	"github.com/filetrail/filetrail/internal/registry"
	"github.com/filetrail/filetrail/internal/store"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "ft",
	Short: "File history snapshots for designated files",
	Long: `filetrail watches a small set of designated files and records every
settled change as an immutable snapshot in a per-project history.

Track files with 'ft track', run 'ft watch' to snapshot changes as they
happen, and browse history with 'ft log', 'ft diff', 'ft show', and
'ft restore'.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default <data-dir>/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func mustConfig() *config.Config {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

// mustRegistry loads the registry, halting on corruption: silently
// losing the list of tracked files would silently lose watch coverage.
func mustRegistry(cfg *config.Config) *registry.Registry {
	reg, err := registry.Load(cfg.RegistryPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading registry: %v\n", err)
		os.Exit(1)
	}
	return reg
}

func mustStore(cfg *config.Config) *store.Store {
	backend, err := store.NewGitBackend()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return store.New(cfg.DataDir, backend)
}

// resolveTarget maps a file path argument to its project slug and
// basename, matching the registry's normalization.
func resolveTarget(path string) (slug, base string, err error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve %s: %w", path, err)
	}
	return registry.Slug(filepath.Dir(abs)), filepath.Base(abs), nil
}

func absDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", dir, err)
	}
	return abs, nil
}
