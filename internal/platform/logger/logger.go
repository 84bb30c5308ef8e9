package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output so log lines
// (including audit lines tagged log_type=audit) are machine-parseable.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}
