// Package logger builds the application's root zerolog.Logger.
package logger

import (
	"io"
	"os"
	"time"

	"github.com/aanand-mishra/students-api/internal/config"
	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger configured for cfg.Env.
//
// dev: human-readable console output at debug level.
// staging: JSON at debug level.
// prod: JSON at info level.
//
// cfg.Log.Level overrides the level. When cfg.Log.File is set every line is
// also written, as JSON, to a size-rotated file.
func New(cfg *config.Config) zerolog.Logger {
	return newWithWriter(cfg, os.Stdout)
}

func newWithWriter(cfg *config.Config, stdout io.Writer) zerolog.Logger {
	var (
		out   io.Writer
		level zerolog.Level
	)

	switch cfg.Env {
	case "prod":
		out, level = stdout, zerolog.InfoLevel
	case "staging":
		out, level = stdout, zerolog.DebugLevel
	default:
		out = zerolog.ConsoleWriter{Out: stdout, TimeFormat: time.RFC3339}
		level = zerolog.DebugLevel
	}

	if cfg.Log.Level != "" {
		if lvl, err := zerolog.ParseLevel(cfg.Log.Level); err == nil {
			level = lvl
		}
	}

	if cfg.Log.File != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.Log.File,
			MaxSize:    cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAge:     cfg.Log.MaxAgeDays,
		})
	}

	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "students-api").
		Logger()
}
