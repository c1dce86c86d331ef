package common

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler is a slog.Handler that discards every record. Enabled reports false so
// callers skip attribute formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// loggerPtr stores the active logger and is read by every package of the module.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger shared by the compiler, loader, and translator packages.
// By default nothing is logged. Passing nil restores the silent default.
//
// Log levels used:
//   - slog.LevelDebug: per-program compile details (slots, globals, content key)
//   - slog.LevelInfo: batch summaries from the loader and profiler
//   - slog.LevelWarn: individual definitions that failed to compile in a batch
//
// Parameters:
//   - l: the logger to install, or nil to disable logging
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the currently installed logger. Safe for concurrent use.
//
// Returns:
//   - *slog.Logger: the active logger, never nil
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
