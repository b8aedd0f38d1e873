// Package logging configures the process-wide logrus logger: console
// output always, plus a size-rotated file when one is configured.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls log level, format, and optional file rotation.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // text or json
	File       string // empty disables file output
	MaxSizeMB  int    // rotate after this many megabytes
	MaxBackups int    // rotated files to keep
	MaxAgeDays int    // days to keep rotated files
	Compress   bool   // gzip rotated files
}

// Init builds the logger. An unknown level falls back to info rather
// than failing startup.
func Init(cfg Config) (*logrus.Logger, error) {
	log := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	writers := []io.Writer{os.Stdout}
	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
			return nil, err
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		})
	}
	log.SetOutput(io.MultiWriter(writers...))

	return log, nil
}

// Component returns an entry tagged with the owning component's name.
// Every package logs through one of these so lines are attributable.
func Component(log *logrus.Logger, name string) *logrus.Entry {
	return log.WithField("component", name)
}
