// Package logging configures the process-wide slog logger. Component loggers
// are derived with slog.Default().With("component", ...).
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Config holds logger configuration
type Config struct {
	Level      string    // debug, info, warn, error
	OutputFile string    // Path to log file (empty = Stderr only)
	MaxSizeMB  int       // Max size in megabytes before rotation (default: 10)
	MaxBackups int       // Number of old log files to keep (default: 3)
	MaxAgeDays int       // Days to keep old log files (default: 28)
	JSONFormat bool      // Use JSON format
	AddSource  bool      // Add source file and line number
	Stderr     io.Writer // Console sink, os.Stderr when nil
}

// Logger wraps slog.Logger with the rotating file it writes to
type Logger struct {
	*slog.Logger
	file *lumberjack.Logger
}

// ParseLevel maps a config level name to a slog level
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// NewLogger creates a new logger instance with the given configuration.
// Console output goes to Stderr so it never mixes with the report on stdout.
func NewLogger(config Config) (*Logger, error) {
	level, err := ParseLevel(config.Level)
	if err != nil {
		return nil, err
	}

	if config.MaxSizeMB == 0 {
		config.MaxSizeMB = 10
	}
	if config.MaxBackups == 0 {
		config.MaxBackups = 3
	}
	if config.MaxAgeDays == 0 {
		config.MaxAgeDays = 28
	}
	if config.Stderr == nil {
		config.Stderr = os.Stderr
	}

	logger := &Logger{}
	out := config.Stderr

	if config.OutputFile != "" {
		dir := filepath.Dir(config.OutputFile)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
		logger.file = &lumberjack.Logger{
			Filename:   config.OutputFile,
			MaxSize:    config.MaxSizeMB,
			MaxBackups: config.MaxBackups,
			MaxAge:     config.MaxAgeDays,
		}
		out = io.MultiWriter(config.Stderr, logger.file)
	}

	opts := &slog.HandlerOptions{
		Level:     level,
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.JSONFormat {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger.Logger = slog.New(handler)
	return logger, nil
}

// Install makes l the slog default
func (l *Logger) Install() {
	slog.SetDefault(l.Logger)
}

// With returns a Logger with the given attributes that shares the file
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), file: l.file}
}

// Close flushes and closes the log file, if any
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// FilePath returns the log file path, empty when logging to Stderr only
func (l *Logger) FilePath() string {
	if l.file == nil {
		return ""
	}
	return l.file.Filename
}
