// Package logging configures the process-wide slog logger. The terminal UI
// owns stdout, so client logs go to a file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// DefaultLogPath returns ~/.local/state/versescout/versescout.log.
func DefaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "versescout.log")
	}
	return filepath.Join(home, ".local", "state", "versescout", "versescout.log")
}

// ParseLevel converts "debug", "info", "warn" or "error" (any case) to a
// slog.Level. Anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

// Setup points the default logger at a JSON log file, creating its
// directory. An empty path uses DefaultLogPath. The returned cleanup closes
// the file.
func Setup(path string, level slog.Level) (cleanup func(), err error) {
	if path == "" {
		path = DefaultLogPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level})))
	return func() { f.Close() }, nil
}

// SetupConsole logs text to w. The dev server uses it since it has no UI
// competing for the terminal.
func SetupConsole(w io.Writer, level slog.Level) {
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}

// SetupTest sends debug output to w.
func SetupTest(w io.Writer) {
	SetupConsole(w, slog.LevelDebug)
}

// LogPanic recovers a panic in a goroutine and logs it with a stack trace:
//
//	defer logging.LogPanic("devserver", nil)
func LogPanic(name string, onRecover func(any)) {
	if r := recover(); r != nil {
		slog.Error("panic recovered",
			"goroutine", name,
			"panic", r,
			"stack", string(captureStack()),
		)
		if onRecover != nil {
			onRecover(r)
		}
	}
}

func captureStack() []byte {
	buf := make([]byte, 4096)
	for {
		n := runtime.Stack(buf, false)
		if n < len(buf) {
			return buf[:n]
		}
		buf = make([]byte, len(buf)*2)
	}
}
