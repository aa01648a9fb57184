package rlog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Handler is a slog.Handler rendering records as
// "<tool> <severity>: <message> (code <N>) at <source> [<role>=<version>]"
// lines, the source-location and role/version trailer being the caller's
// business, not the peer wire contract.
type Handler struct {
	mu    sync.Mutex
	w     io.Writer
	tool  string
	min   slog.Level
	attrs []slog.Attr
}

// NewHandler returns a Handler writing tool-prefixed lines to w, gated at
// minLevel.
func NewHandler(w io.Writer, tool string, minLevel LogLevel) *Handler {
	return &Handler{w: w, tool: tool, min: minLevel.slogLevel()}
}

// Enabled implements slog.Handler.
func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min
}

// Handle implements slog.Handler, rendering one record as a spec
// 7-shaped diagnostic line.
func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s %s: %s", h.tool, slogLevelName(r.Level), r.Message)

	code := -1
	source := ""
	role := ""
	version := ""
	r.Attrs(func(a slog.Attr) bool {
		switch a.Key {
		case "code":
			code = int(a.Value.Int64())
		case "source":
			source = a.Value.String()
		case "role":
			role = a.Value.String()
		case "version":
			version = a.Value.String()
		}
		return true
	})
	for _, a := range h.attrs {
		switch a.Key {
		case "role":
			role = a.Value.String()
		case "version":
			version = a.Value.String()
		}
	}

	if code >= 0 {
		fmt.Fprintf(&buf, " (code %d)", code)
	}
	if source != "" {
		fmt.Fprintf(&buf, " at %s", source)
	}
	if role != "" || version != "" {
		fmt.Fprintf(&buf, " [%s=%s]", role, version)
	}
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

// WithAttrs implements slog.Handler.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	h2 := &Handler{
		w:     h.w,
		tool:  h.tool,
		min:   h.min,
		attrs: append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
	return h2
}

// WithGroup implements slog.Handler. rsyncgo never groups attributes, so
// this is a no-op pass-through.
func (h *Handler) WithGroup(_ string) slog.Handler {
	return h
}

var (
	defaultMu      sync.Mutex
	defaultLogger  = slog.New(NewHandler(io.Discard, "rsyncgo", LogLevelInfo))
	defaultStarted = time.Time{}
)

// SetDefault installs logger as the package-level logger used by
// Infof/Errorf/Debugf/Noticef.
func SetDefault(logger *slog.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

func current() *slog.Logger {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	return defaultLogger
}
