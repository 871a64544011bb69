// Package rglog provides the shared, opt-in structured logger for the
// render graph, resource manager, and command contexts.
//
// By default the render graph produces no log output. Call SetLogger to
// enable it: a package-level atomically-swappable *slog.Logger backed by
// a zero-cost no-op handler when disabled.
package rglog

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// SetLogger configures the logger used by the rendergraph, resmgr and
// rcontext packages. Pass nil to restore the silent default.
//
// Levels:
//   - Debug: pipeline-pack loading
//   - Warn: dropped Incomplete or cyclic nodes, callbacks that declined to
//     record, unresolvable handles, buffer/image pool overflow, failed
//     batch retirement
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// Logger returns the currently configured logger.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
