// Package config loads filetrail configuration from file, environment
// variables, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config is the resolved runtime configuration.
type Config struct {
	// DataDir holds the registry file, the snapshot repositories, the
	// index database, and the daemon log.
	DataDir string `mapstructure:"data_dir"`

	// Debounce is the quiet period after the last raw filesystem
	// event before a change is committed.
	Debounce time.Duration `mapstructure:"debounce"`

	// LogFile overrides the daemon log location. Empty means
	// <data_dir>/filetrail.log.
	LogFile string `mapstructure:"log_file"`

	// LogMaxSizeMB and LogMaxBackups bound log rotation.
	LogMaxSizeMB  int `mapstructure:"log_max_size_mb"`
	LogMaxBackups int `mapstructure:"log_max_backups"`
}

// Default configuration values.
var defaults = Config{
	Debounce:      500 * time.Millisecond,
	LogMaxSizeMB:  10,
	LogMaxBackups: 3,
}

// Load resolves configuration with precedence: explicit config file (or
// <data_dir>/config.yaml), then FILETRAIL_* environment variables, then
// defaults. A missing config file is not an error.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	dataDir := defaultDataDir()
	v.SetDefault("data_dir", dataDir)
	v.SetDefault("debounce", defaults.Debounce)
	v.SetDefault("log_file", "")
	v.SetDefault("log_max_size_mb", defaults.LogMaxSizeMB)
	v.SetDefault("log_max_backups", defaults.LogMaxBackups)

	v.SetEnvPrefix("FILETRAIL")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(dataDir)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Debounce <= 0 {
		cfg.Debounce = defaults.Debounce
	}

	return &cfg, nil
}

// RegistryPath returns the registry file location.
func (c *Config) RegistryPath() string {
	return filepath.Join(c.DataDir, "registry.json")
}

// IndexPath returns the snapshot index database location.
func (c *Config) IndexPath() string {
	return filepath.Join(c.DataDir, "index.db")
}

// LogPath returns the daemon log location.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(c.DataDir, "filetrail.log")
}

// defaultDataDir is ~/.filetrail, falling back to the working
// directory when the home directory cannot be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".filetrail"
	}
	return filepath.Join(home, ".filetrail")
}
