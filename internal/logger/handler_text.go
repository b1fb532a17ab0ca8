package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
)

const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiGray   = "\033[90m"
)

// TextHandler is a slog.Handler producing compact single-line text records,
// with ANSI colors when the output is a terminal.
type TextHandler struct {
	w     io.Writer
	mu    *sync.Mutex
	level slog.Leveler
	attrs []slog.Attr
	color bool
}

// NewTextHandler creates a text handler writing to w.
func NewTextHandler(w io.Writer, level slog.Leveler, color bool) *TextHandler {
	return &TextHandler{
		w:     w,
		mu:    &sync.Mutex{},
		level: level,
		color: color,
	}
}

func (h *TextHandler) Enabled(_ context.Context, l slog.Level) bool {
	min := slog.LevelInfo
	if h.level != nil {
		min = h.level.Level()
	}
	return l >= min
}

func (h *TextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := make([]byte, 0, 128)
	buf = r.Time.AppendFormat(buf, "2006-01-02 15:04:05")
	buf = fmt.Appendf(buf, " %s %s", h.levelTag(r.Level), r.Message)

	for _, a := range h.attrs {
		buf = h.appendAttr(buf, a)
	}
	r.Attrs(func(a slog.Attr) bool {
		buf = h.appendAttr(buf, a)
		return true
	})
	buf = append(buf, '\n')

	// The lock covers only the write so records stay whole.
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf)
	return err
}

func (h *TextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	nh.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &nh
}

func (h *TextHandler) WithGroup(string) slog.Handler {
	// Groups are not used by this codebase; attrs stay flat.
	return h
}

func (h *TextHandler) levelTag(l slog.Level) string {
	var tag, color string
	switch {
	case l < slog.LevelInfo:
		tag, color = "DEBUG", ansiGray
	case l < slog.LevelWarn:
		tag, color = "INFO ", ansiGreen
	case l < slog.LevelError:
		tag, color = "WARN ", ansiYellow
	default:
		tag, color = "ERROR", ansiRed
	}
	if h.color {
		return color + tag + ansiReset
	}
	return tag
}

func (h *TextHandler) appendAttr(buf []byte, a slog.Attr) []byte {
	if a.Equal(slog.Attr{}) {
		return buf
	}
	a.Value = a.Value.Resolve()
	if h.color {
		return fmt.Appendf(buf, " %s%s%s=%v", ansiCyan, a.Key, ansiReset, a.Value)
	}
	return fmt.Appendf(buf, " %s=%v", a.Key, a.Value)
}
