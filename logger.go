// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3dpipe

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// nopHandler drops every record. Enabled reports false, so disabled
// trace calls in the draw path never format their attributes.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// NopLogger returns a logger that silently discards all output.
func NopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr holds the process-wide logger. The pipeline manager may be
// created on a different goroutine than the one that installs tracing.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(NopLogger())
}

// SetLogger configures the logger for d3dpipe and all its sub-packages.
// By default, d3dpipe produces no log output. Call SetLogger, or install
// the trace logger built by NewTraceLogger, to enable logging.
//
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by d3dpipe:
//   - [slog.LevelDebug]: per-call diagnostics (locks, target switches)
//   - [slog.LevelInfo]: lifecycle events (adapter checks, device creation, reset)
//   - [slog.LevelWarn]: recoverable failures (blocked adapters, lost devices)
//   - [slog.LevelError]: failed native calls
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = NopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current logger used by d3dpipe.
// Sub-packages call this when no logger was injected through options.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}
