package logger

import (
	"context"
	"errors"
	"log/slog"
)

// Multi returns a logger that hands every record to each of loggers. Nil
// loggers are skipped, so optional sinks can be passed unconditionally:
// with none left it returns Nop and with one it returns that logger as is.
//
// The chat command uses it to add a JSON log file next to the terminal
// logger.
func Multi(loggers ...*slog.Logger) *slog.Logger {
	var fan fanout
	for _, l := range loggers {
		if l != nil {
			fan = append(fan, l.Handler())
		}
	}

	switch len(fan) {
	case 0:
		return Nop()
	case 1:
		return slog.New(fan[0])
	default:
		return slog.New(fan)
	}
}

// fanout is a slog.Handler that forwards to several handlers. Each handler
// keeps its own level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle delivers r to every handler that accepts its level. A failing sink
// does not stop delivery to the others.
func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(fn func(slog.Handler) slog.Handler) fanout {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = fn(h)
	}
	return out
}
