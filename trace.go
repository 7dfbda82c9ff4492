// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package d3dpipe

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// LevelVerbose sits between debug and info; it carries per-frame
// diagnostics that are too noisy for info.
const LevelVerbose = slog.Level(-2)

// TraceOff disables tracing.
const TraceOff = slog.Level(1 << 10)

// ParseTraceLevel maps an NWT_TRACE_LEVEL value to a slog level.
func ParseTraceLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "off":
		return TraceOff, nil
	case "error":
		return slog.LevelError, nil
	case "warning", "warn":
		return slog.LevelWarn, nil
	case "info":
		return slog.LevelInfo, nil
	case "verbose":
		return LevelVerbose, nil
	case "debug":
		return slog.LevelDebug, nil
	}
	return 0, fmt.Errorf("%w: trace level %q", ErrInvalidConfig, s)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewTraceLogger builds the diagnostic logger described by cfg.
//
// With TraceFile set, output goes to a size-rotated file; otherwise to
// stderr. The returned Closer flushes and closes the file and must be
// called at shutdown.
func NewTraceLogger(cfg Config) (*slog.Logger, io.Closer, error) {
	level, err := ParseTraceLevel(cfg.TraceLevel)
	if err != nil {
		return nil, nil, err
	}
	if level == TraceOff {
		return NopLogger(), nopCloser{}, nil
	}

	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if cfg.TraceFile != "" {
		lj := &lumberjack.Logger{
			Filename:   cfg.TraceFile,
			MaxSize:    16, // MB
			MaxBackups: 2,
		}
		w, closer = lj, lj
	}

	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lv, ok := a.Value.Any().(slog.Level); ok && lv == LevelVerbose {
					a.Value = slog.StringValue("VERBOSE")
				}
			}
			return a
		},
	})
	return slog.New(h), closer, nil
}
