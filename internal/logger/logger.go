// Package logger provides the process-wide structured logger.
//
// It is a thin front end over log/slog with two output formats: a colored
// human-oriented text format for terminals and JSON for machine capture.
// The zero state logs INFO and above as text to stderr, so packages may log
// before Init runs.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum level to emit: DEBUG, INFO, WARN or ERROR
	// (case-insensitive).
	Level string

	// Format selects the output encoding: "text" or "json".
	Format string

	// Output is "stdout", "stderr", or a file path.
	Output string
}

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	slogger = slog.New(NewTextHandler(os.Stderr, level, isTerminal(os.Stderr)))
)

// Init configures the global logger. It replaces the default handler, so it
// should run once, early in main.
func Init(cfg Config) error {
	lvl, err := parseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var w io.Writer
	color := false
	switch cfg.Output {
	case "", "stderr":
		w = os.Stderr
		color = isTerminal(os.Stderr)
	case "stdout":
		w = os.Stdout
		color = isTerminal(os.Stdout)
	default:
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("open log output: %w", err)
		}
		w = f
	}

	level.Set(lvl)

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		h = NewTextHandler(w, level, color)
	case "json":
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	mu.Lock()
	slogger = slog.New(h)
	mu.Unlock()
	return nil
}

// SetLevel changes the minimum level at runtime.
func SetLevel(s string) error {
	lvl, err := parseLevel(s)
	if err != nil {
		return err
	}
	level.Set(lvl)
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "INFO":
		return slog.LevelInfo, nil
	case "DEBUG":
		return slog.LevelDebug, nil
	case "WARN":
		return slog.LevelWarn, nil
	case "ERROR":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func get() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

// Debug logs at DEBUG level with alternating key/value args.
func Debug(msg string, args ...any) { get().Debug(msg, args...) }

// Info logs at INFO level.
func Info(msg string, args ...any) { get().Info(msg, args...) }

// Warn logs at WARN level.
func Warn(msg string, args ...any) { get().Warn(msg, args...) }

// Error logs at ERROR level.
func Error(msg string, args ...any) { get().Error(msg, args...) }

// With returns a logger carrying the given attributes on every record.
func With(args ...any) *slog.Logger { return get().With(args...) }
