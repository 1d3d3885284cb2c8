// Package activity keeps the human-readable operation log shown in the
// desktop log window. It is an slog.Handler, so every component logs
// through log/slog and the window sees the same records.
package activity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Line is one rendered record.
type Line struct {
	Time    time.Time `json:"time"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}

func (l Line) String() string {
	return fmt.Sprintf("%s %-5s %s", l.Time.Format("15:04:05"), l.Level, l.Message)
}

// Log is a bounded ring of lines with optional forwarding.
type Log struct {
	mu        sync.Mutex
	lines     []Line
	start     int
	size      int
	listeners []func(Line)
}

// New returns a log keeping the most recent size lines.
func New(size int) *Log {
	if size < 1 {
		size = 1
	}
	return &Log{size: size}
}

// Lines returns the retained lines, oldest first.
func (l *Log) Lines() []Line {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Line, 0, len(l.lines))
	out = append(out, l.lines[l.start:]...)
	out = append(out, l.lines[:l.start]...)
	return out
}

// Subscribe registers fn for every future line. fn runs on the logging
// goroutine and must not log.
func (l *Log) Subscribe(fn func(Line)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.listeners = append(l.listeners, fn)
}

// Clear drops all retained lines.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = nil
	l.start = 0
}

func (l *Log) append(line Line) {
	l.mu.Lock()
	if len(l.lines) < l.size {
		l.lines = append(l.lines, line)
	} else {
		l.lines[l.start] = line
		l.start = (l.start + 1) % l.size
	}
	listeners := append([]func(Line){}, l.listeners...)
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(line)
	}
}

// Handler returns an slog.Handler that writes into l at or above level
// and passes every record on to next, which may be nil.
func (l *Log) Handler(level slog.Leveler, next slog.Handler) slog.Handler {
	return &handler{log: l, level: level, next: next}
}

type handler struct {
	log    *Log
	level  slog.Leveler
	next   slog.Handler
	attrs  []slog.Attr
	groups []string
}

func (h *handler) Enabled(ctx context.Context, lvl slog.Level) bool {
	if lvl >= h.level.Level() {
		return true
	}
	return h.next != nil && h.next.Enabled(ctx, lvl)
}

func (h *handler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= h.level.Level() {
		h.log.append(Line{Time: r.Time, Level: r.Level.String(), Message: h.render(r)})
	}
	if h.next != nil && h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

// render appends attributes as key=value after the message.
func (h *handler) render(r slog.Record) string {
	var b strings.Builder
	b.WriteString(r.Message)
	prefix := strings.Join(h.groups, ".")
	write := func(a slog.Attr) {
		if a.Equal(slog.Attr{}) {
			return
		}
		b.WriteByte(' ')
		if prefix != "" {
			b.WriteString(prefix)
			b.WriteByte('.')
		}
		b.WriteString(a.Key)
		b.WriteByte('=')
		b.WriteString(a.Value.Resolve().String())
	}
	for _, a := range h.attrs {
		write(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		write(a)
		return true
	})
	return b.String()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := *h
	c.attrs = append(append([]slog.Attr{}, h.attrs...), attrs...)
	if h.next != nil {
		c.next = h.next.WithAttrs(attrs)
	}
	return &c
}

func (h *handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := *h
	c.groups = append(append([]string{}, h.groups...), name)
	if h.next != nil {
		c.next = h.next.WithGroup(name)
	}
	return &c
}
