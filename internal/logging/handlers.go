package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes appended to every record at write time,
// so they follow state that changes after the logger is built (the combat
// phase, for one).
type ContextProvider func() []slog.Attr

type contextHandler struct {
	next    slog.Handler
	current ContextProvider
}

func withCurrent(next slog.Handler, p ContextProvider) slog.Handler {
	if p == nil {
		return next
	}
	return &contextHandler{next: next, current: p}
}

func (h *contextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *contextHandler) Handle(ctx context.Context, r slog.Record) error {
	r.AddAttrs(h.current()...)
	return h.next.Handle(ctx, r)
}

func (h *contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &contextHandler{next: h.next.WithAttrs(attrs), current: h.current}
}

func (h *contextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &contextHandler{next: h.next.WithGroup(name), current: h.current}
}

// fanout writes each record to every sink enabled for its level: console or
// file, Graylog, OTel. A failing sink never starves the others.
type fanout []slog.Handler

func newFanout(sinks ...slog.Handler) fanout {
	out := make(fanout, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, s := range f {
		if s.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, s := range f {
		if !s.Enabled(ctx, r.Level) {
			continue
		}
		if err := s.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(s slog.Handler) slog.Handler { return s.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.each(func(s slog.Handler) slog.Handler { return s.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, s := range f {
		out[i] = fn(s)
	}
	return out
}
