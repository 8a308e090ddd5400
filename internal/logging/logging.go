// Package logging builds the loggers handed to long-lived components.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/filetrail/filetrail/internal/config"
)

// New returns a logger writing to stderr and a size-rotated log file.
// The file keeps daemon activity inspectable after the terminal is gone.
func New(cfg *config.Config, prefix string) *log.Logger {
	rotated := &lumberjack.Logger{
		Filename:   cfg.LogPath(),
		MaxSize:    cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
	}

	return log.New(io.MultiWriter(os.Stderr, rotated), prefix, log.LstdFlags)
}
