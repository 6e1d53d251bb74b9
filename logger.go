package isr

import (
	"context"
	"log/slog"
	"sync/atomic"

	igpu "github.com/gogpu/isr/internal/gpu"
	"github.com/gogpu/isr/internal/ratecompute"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// SetLogger configures the logger for isr and its internal packages.
// By default, isr produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by isr:
//   - [slog.LevelDebug]: per-frame dispatch detail (stage timings, tier counts)
//   - [slog.LevelInfo]: lifecycle events (pipeline construction, reset)
//   - [slog.LevelWarn]: degraded frames (stale shading-rate grid republished)
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	igpu.SetLogger(l)
	ratecompute.SetLogger(l)
}

// Logger returns the current logger used by isr.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// slogger returns the current logger for internal use.
func slogger() *slog.Logger {
	return loggerPtr.Load()
}
