package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ContextProvider returns attributes computed at log time, such as the
// running match.
type ContextProvider func() []slog.Attr

// Fanout sends every record to all of its handlers. Attributes from the
// optional ContextProvider are added to the record first.
type Fanout struct {
	handlers []slog.Handler
	context  ContextProvider
}

// NewFanout creates a Fanout. Nil handlers are dropped.
func NewFanout(provider ContextProvider, handlers ...slog.Handler) *Fanout {
	f := &Fanout{context: provider}
	for _, h := range handlers {
		if h != nil {
			f.handlers = append(f.handlers, h)
		}
	}
	return f
}

// Enabled reports whether any handler takes records at level.
func (f *Fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every enabled handler. A failing handler does not
// stop delivery to the rest; all failures are returned joined.
func (f *Fanout) Handle(ctx context.Context, r slog.Record) error {
	if f.context != nil {
		if attrs := f.context(); len(attrs) > 0 {
			r = r.Clone()
			r.AddAttrs(attrs...)
		}
	}

	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *Fanout) derive(fn func(slog.Handler) slog.Handler) *Fanout {
	out := &Fanout{context: f.context, handlers: make([]slog.Handler, len(f.handlers))}
	for i, h := range f.handlers {
		out.handlers[i] = fn(h)
	}
	return out
}

// WithAttrs adds attrs to every handler.
func (f *Fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

// WithGroup opens a group on every handler.
func (f *Fanout) WithGroup(name string) slog.Handler {
	if name == "" {
		return f
	}
	return f.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}
