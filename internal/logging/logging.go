// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the zerolog loggers used by barcode-sync. Every run
// writes JSON lines to its own file under the log directory; the same events
// can be echoed to the terminal.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"

	"github.com/pdiddy/barcode-sync/pkg/types"
)

// Output formats for the console side of a logger.
const (
	FormatAuto    = "auto"
	FormatConsole = "console"
	FormatJSON    = "json"
)

// ParseLevel maps a configured level name to a zerolog level. Unknown names
// fall back to info.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "off", "none":
		return zerolog.Disabled
	}
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}

// New returns a logger writing to w. The format decides between JSON lines
// and zerolog's console writer; auto picks console when w is a terminal.
func New(w io.Writer, cfg types.LogConfig) zerolog.Logger {
	return zerolog.New(consoleWriter(w, cfg.Format)).
		Level(ParseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

// Nop returns a logger that discards everything.
func Nop() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func consoleWriter(w io.Writer, format string) io.Writer {
	switch strings.ToLower(format) {
	case FormatJSON:
		return w
	case FormatConsole:
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: os.Getenv("NO_COLOR") != ""}
	}
	if f, ok := w.(*os.File); ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen, NoColor: os.Getenv("NO_COLOR") != ""}
	}
	return w
}

// RunLog is the logger for one command invocation.
type RunLog struct {
	zerolog.Logger

	// Path is the JSON-lines file the run writes to.
	Path string

	file *os.File
}

// FileLevel is the level of the run-log file: the configured level, but
// never above info, since later commands read info events back from it.
func FileLevel(configured zerolog.Level) zerolog.Level {
	if configured > zerolog.InfoLevel {
		return zerolog.InfoLevel
	}
	return configured
}

// Open creates {cfg.Dir}/{name}.log and returns a logger that appends JSON
// lines to it at FileLevel. When console is non-nil, events at the
// configured level are also written there in the configured console format.
func Open(cfg types.LogConfig, name string, console io.Writer) (*RunLog, error) {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory %s: %w", cfg.Dir, err)
	}
	path := filepath.Join(cfg.Dir, name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	level := ParseLevel(cfg.Level)
	var w io.Writer = f
	if console != nil {
		w = zerolog.MultiLevelWriter(f, &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: consoleWriter(console, cfg.Format)},
			Level:  level,
		})
	}
	logger := zerolog.New(w).
		Level(FileLevel(level)).
		With().
		Timestamp().
		Logger()

	return &RunLog{Logger: logger, Path: path, file: f}, nil
}

// Log returns a pointer to the embedded logger.
func (r *RunLog) Log() *zerolog.Logger {
	return &r.Logger
}

// Close flushes and closes the log file.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	if err := r.file.Sync(); err != nil {
		r.file.Close()
		return fmt.Errorf("syncing log file: %w", err)
	}
	return r.file.Close()
}

// RunName builds the per-run file base name: the command, any identifying
// parts, and a UTC timestamp, joined by underscores.
func RunName(command string, now time.Time, parts ...string) string {
	fields := []string{command}
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			fields = append(fields, sanitize(p))
		}
	}
	fields = append(fields, now.UTC().Format("20060102T150405Z"))
	return strings.Join(fields, "_")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '.':
			return r
		}
		return '-'
	}, s)
}
