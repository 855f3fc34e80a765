// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package logging builds the structured logger shared by the pipeline stages.
// Human-facing progress goes to the writer passed into each stage; this
// logger carries diagnostics and is quiet (warn) by default.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/pdiddy/paper-scout/pkg/types"
)

// New returns a slog.Logger writing to w with the configured level and
// encoding (text or json).
func New(w io.Writer, cfg types.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("service", "paper-scout")
}

// Discard returns a logger that drops every record. Tests and library
// callers that do not care about diagnostics use it.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ParseLevel maps a level name to a slog.Level. Unknown names fall back to warn.
func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}
