// Package logger builds the slog loggers used across panelctl: a pretty
// terminal logger for commands, JSON for log files and services, and a
// fan-out that feeds several of them at once.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
)

type settings struct {
	level  slog.Level
	pretty bool
	json   bool
	prefix string
	out    io.Writer
}

// New builds a *slog.Logger. Without options it writes text records at Info
// level to os.Stderr.
func New(opts ...Option) *slog.Logger {
	s := &settings{
		level: slog.LevelInfo,
		out:   os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.out == nil {
		return Nop()
	}

	handlerOpts := &slog.HandlerOptions{Level: s.level}
	switch {
	case s.json:
		return slog.New(slog.NewJSONHandler(s.out, handlerOpts))
	case s.pretty:
		return slog.New(charmlog.NewWithOptions(s.out, charmlog.Options{
			Level:           charmlog.Level(s.level),
			Prefix:          s.prefix,
			ReportTimestamp: true,
			TimeFormat:      time.TimeOnly,
		}))
	default:
		return slog.New(slog.NewTextHandler(s.out, handlerOpts))
	}
}

// Nop returns a logger that discards everything. Components default to it
// when no logger is configured.
func Nop() *slog.Logger {
	return slog.New(discard{})
}

type discard struct{}

func (discard) Enabled(context.Context, slog.Level) bool  { return false }
func (discard) Handle(context.Context, slog.Record) error { return nil }
func (d discard) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discard) WithGroup(string) slog.Handler           { return d }
