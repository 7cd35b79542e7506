// Copyright 2026 © The Telos Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// ConfigureSlog installs a process-wide slog logger. Records logged
// inside an active span carry trace_id and span_id so log lines can be
// joined with traces downstream.
func ConfigureSlog(output io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: logLevel(level)}
	var base slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		base = slog.NewJSONHandler(output, opts)
	} else {
		base = slog.NewTextHandler(output, opts)
	}
	logger := slog.New(&spanCorrelator{next: base})
	slog.SetDefault(logger)
	return logger
}

// spanCorrelator decorates records with the calling span's identifiers
// before handing them to the wrapped handler.
type spanCorrelator struct {
	next slog.Handler
}

func (h *spanCorrelator) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *spanCorrelator) Handle(ctx context.Context, record slog.Record) error {
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			if !hasAttr(record, "trace_id") {
				record.AddAttrs(slog.String("trace_id", sc.TraceID().String()))
			}
			if !hasAttr(record, "span_id") {
				record.AddAttrs(slog.String("span_id", sc.SpanID().String()))
			}
		}
	}
	return h.next.Handle(ctx, record)
}

func (h *spanCorrelator) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &spanCorrelator{next: h.next.WithAttrs(attrs)}
}

func (h *spanCorrelator) WithGroup(name string) slog.Handler {
	return &spanCorrelator{next: h.next.WithGroup(name)}
}

// logLevel maps the log.level configuration value to a slog level.
// Unknown values fall back to info rather than failing startup.
func logLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func hasAttr(record slog.Record, key string) bool {
	found := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == key {
			found = true
			return false
		}
		return true
	})
	return found
}
