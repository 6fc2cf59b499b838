// Package logging builds the process logger: human-readable text on stdout
// and a daily JSON log file, fanned out with slog-multi.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/samber/oops"
	slogmulti "github.com/samber/slog-multi"
)

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

// New returns a logger writing text to stdout at level and JSON to
// <dir>/<prefix>_YYYYMMDD.log at debug level. With an empty dir only stdout
// is used. The returned closer releases the log file.
func New(level, dir, prefix string) (*slog.Logger, io.Closer, error) {
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	if dir == "" {
		return slog.New(textHandler), io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, oops.With("log_dir", dir).Wrap(err)
	}
	name := filepath.Join(dir, prefix+"_"+time.Now().Format("20060102")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, oops.With("log_file", name).Wrap(err)
	}

	jsonHandler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	return slog.New(slogmulti.Fanout(textHandler, jsonHandler)), f, nil
}
