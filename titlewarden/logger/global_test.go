package logger

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRecord struct {
	level slog.Level
	msg   string
	attrs map[string]slog.Value
}

// captureHandler records everything logged through the default logger.
type captureHandler struct {
	mu      sync.Mutex
	records []capturedRecord
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]slog.Value)
	r.Attrs(func(a slog.Attr) bool {
		attrs[a.Key] = a.Value
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, capturedRecord{level: r.Level, msg: r.Message, attrs: attrs})
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) last(t *testing.T) capturedRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotEmpty(t, h.records)
	return h.records[len(h.records)-1]
}

func withCapture(t *testing.T) *captureHandler {
	t.Helper()
	h := &captureHandler{}
	prev := slog.Default()
	slog.SetDefault(slog.New(h))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return h
}

func TestLogCommand(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		h := withCapture(t)
		LogCommand("titles-show", 50*time.Millisecond, nil,
			slog.String("user_name", "aang"))

		rec := h.last(t)
		assert.Equal(t, slog.LevelInfo, rec.level)
		assert.Equal(t, "Command completed", rec.msg)
		assert.Equal(t, "cmd", rec.attrs["type"].String())
		assert.Equal(t, "titles-show", rec.attrs["name"].String())
		assert.Equal(t, "success", rec.attrs["status"].String())
		assert.Equal(t, "aang", rec.attrs["user_name"].String())
	})

	t.Run("slow", func(t *testing.T) {
		h := withCapture(t)
		LogCommand("titles-show", 3*time.Second, nil)

		rec := h.last(t)
		assert.Equal(t, slog.LevelWarn, rec.level)
		assert.Equal(t, "Command executed slowly", rec.msg)
		assert.Equal(t, "slow", rec.attrs["status"].String())
	})

	t.Run("failed", func(t *testing.T) {
		h := withCapture(t)
		LogCommand("titles-reserve", 10*time.Millisecond, errors.New("boom"))

		rec := h.last(t)
		assert.Equal(t, slog.LevelError, rec.level)
		assert.Equal(t, "Command failed", rec.msg)
		assert.Equal(t, "failed", rec.attrs["status"].String())
		assert.Contains(t, rec.attrs, "error")
	})
}

func TestLogScheduler(t *testing.T) {
	h := withCapture(t)
	LogScheduler("Shift expired", slog.String("title", "General"))

	rec := h.last(t)
	assert.Equal(t, slog.LevelInfo, rec.level)
	assert.Equal(t, "Shift expired", rec.msg)
	assert.Equal(t, "sched", rec.attrs["type"].String())
	assert.Equal(t, "General", rec.attrs["title"].String())
}

func TestLogSchedulerError(t *testing.T) {
	h := withCapture(t)
	LogSchedulerError("Failed to activate reservation", errors.New("boom"),
		slog.String("title", "General"))

	rec := h.last(t)
	assert.Equal(t, slog.LevelError, rec.level)
	assert.Equal(t, "sched", rec.attrs["type"].String())
	assert.Contains(t, rec.attrs, "error")
}
