package compositor

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/compositor/composite"
	"github.com/gogpu/compositor/dispatch"
	"github.com/gogpu/compositor/gpu/software"
	"github.com/gogpu/compositor/gpu/wgpu"
	"github.com/gogpu/compositor/layer"
	"github.com/gogpu/compositor/texture"
)

// nopHandler is a slog.Handler that silently discards all log records.
// Enabled returns false so callers skip message formatting entirely.
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

// packageLoggers are the sub-package setters SetLogger forwards to.
var packageLoggers = []func(*slog.Logger){
	composite.SetLogger,
	dispatch.SetLogger,
	layer.SetLogger,
	software.SetLogger,
	texture.SetLogger,
	wgpu.SetLogger,
}

// SetLogger configures the logger for the compositor and all its
// sub-packages. By default nothing is logged.
//
// SetLogger is safe for concurrent use. Pass nil to restore the silent
// default.
//
// Log levels used:
//   - [slog.LevelDebug]: per-frame diagnostics (tiles allocated, commits skipped)
//   - [slog.LevelInfo]: lifecycle events (engine created, adapter selected)
//   - [slog.LevelWarn]: invariant violations, dropped draws, leaked textures
//   - [slog.LevelError]: panics in asynchronous compositing-thread calls
//
// Example:
//
//	compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	for _, set := range packageLoggers {
		set(l)
	}
}

// Logger returns the current logger.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
