package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoad_Defaults verifies loading with no file and no environment
// yields the documented defaults.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want 500ms", cfg.Debounce)
	}
	if cfg.LogMaxSizeMB != 10 {
		t.Errorf("LogMaxSizeMB = %d, want 10", cfg.LogMaxSizeMB)
	}
	if cfg.LogMaxBackups != 3 {
		t.Errorf("LogMaxBackups = %d, want 3", cfg.LogMaxBackups)
	}
	if cfg.DataDir == "" {
		t.Error("DataDir should have a default")
	}
}

// TestLoad_ConfigFile verifies explicit file values win over defaults.
func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	content := "data_dir: " + dir + "\ndebounce: 2s\nlog_max_backups: 7\n"
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.Debounce != 2*time.Second {
		t.Errorf("Debounce = %v, want 2s", cfg.Debounce)
	}
	if cfg.LogMaxBackups != 7 {
		t.Errorf("LogMaxBackups = %d, want 7", cfg.LogMaxBackups)
	}
	// Unset keys keep their defaults.
	if cfg.LogMaxSizeMB != 10 {
		t.Errorf("LogMaxSizeMB = %d, want default 10", cfg.LogMaxSizeMB)
	}
}

// TestLoad_MissingExplicitFile verifies a named-but-absent config file
// is an error, unlike the implicit default location.
func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load() should fail for an explicit missing config file")
	}
}

// TestLoad_EnvOverride verifies FILETRAIL_* variables override
// defaults.
func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FILETRAIL_DATA_DIR", dir)
	t.Setenv("FILETRAIL_DEBOUNCE", "250ms")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.DataDir != dir {
		t.Errorf("DataDir = %q, want %q", cfg.DataDir, dir)
	}
	if cfg.Debounce != 250*time.Millisecond {
		t.Errorf("Debounce = %v, want 250ms", cfg.Debounce)
	}
}

// TestLoad_InvalidDebounceFallsBack verifies a non-positive debounce is
// replaced with the default rather than propagated.
func TestLoad_InvalidDebounceFallsBack(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgFile, []byte("debounce: 0s\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := Load(cfgFile)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Debounce != 500*time.Millisecond {
		t.Errorf("Debounce = %v, want default 500ms", cfg.Debounce)
	}
}

// TestPaths verifies the derived file locations.
func TestPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data"}

	if got := cfg.RegistryPath(); got != filepath.Join("/data", "registry.json") {
		t.Errorf("RegistryPath() = %q", got)
	}
	if got := cfg.IndexPath(); got != filepath.Join("/data", "index.db") {
		t.Errorf("IndexPath() = %q", got)
	}
	if got := cfg.LogPath(); got != filepath.Join("/data", "filetrail.log") {
		t.Errorf("LogPath() = %q", got)
	}

	cfg.LogFile = "/var/log/ft.log"
	if got := cfg.LogPath(); got != "/var/log/ft.log" {
		t.Errorf("LogPath() with override = %q", got)
	}
}
