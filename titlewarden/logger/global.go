package logger

import (
	"log/slog"
	"time"
)

// slowCommandThreshold separates a slow-command warning from a normal
// completion.
const slowCommandThreshold = 2 * time.Second

// LogCommand logs the outcome of one slash command execution with the
// shared type=cmd attrs; extra attrs (user, guild) are appended.
func LogCommand(name string, duration time.Duration, err error, extra ...any) {
	attrs := []any{
		slog.String("type", "cmd"),
		slog.String("name", name),
		slog.Duration("took", duration),
	}
	attrs = append(attrs, extra...)

	switch {
	case err != nil:
		slog.Error("Command failed", append(attrs,
			slog.Any("error", err),
			slog.String("status", "failed"),
		)...)
	case duration > slowCommandThreshold:
		slog.Warn("Command executed slowly", append(attrs,
			slog.String("status", "slow"),
		)...)
	default:
		slog.Info("Command completed", append(attrs,
			slog.String("status", "success"),
		)...)
	}
}

// LogScheduler logs activation scheduler events.
func LogScheduler(msg string, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sched")}
	slog.Info(msg, append(baseAttrs, attrs...)...)
}

// LogSchedulerError logs a scheduler failure that was isolated to one
// pass or title.
func LogSchedulerError(msg string, err error, attrs ...any) {
	baseAttrs := []any{slog.String("type", "sched")}
	slog.Error(msg, append(append(baseAttrs, attrs...), slog.Any("error", err))...)
}
