package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/giantswarm/duolaunch/internal/fileutil"
)

// Config selects level, format and the optional log file.
type Config struct {
	Level  string // debug|info|warn|error; unknown values mean info
	Format string // text|json; unknown values mean text

	// File is the log file path. Empty disables file logging.
	File string
	// MaxSizeMB is the size at which File is rotated.
	MaxSizeMB int
	// MaxBackups is how many rotated files are kept. Zero keeps one.
	MaxBackups int
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New creates the launcher logger writing to console and, when cfg.File is
// set, to a rotated file. The returned closer must be closed on exit to
// release the file.
func New(cfg Config, console io.Writer) (*slog.Logger, io.Closer, error) {
	w := console
	var closer io.Closer = nopCloser{}

	if cfg.File != "" {
		if err := fileutil.EnsureDirForFile(cfg.File); err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		backups := cfg.MaxBackups
		if backups <= 0 {
			backups = 1
		}
		file := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: backups,
		}
		w = io.MultiWriter(console, file)
		closer = file
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler), closer, nil
}

// ParseLevel converts a level name to slog.Level.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
