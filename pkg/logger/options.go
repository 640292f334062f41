package logger

import (
	"io"
	"log/slog"
)

// Option configures a logger built by New.
type Option func(*settings)

// WithDebug lowers the level to Debug.
func WithDebug(debug bool) Option {
	return func(s *settings) {
		s.level = slog.LevelInfo
		if debug {
			s.level = slog.LevelDebug
		}
	}
}

// WithPretty selects the colorized charmbracelet handler meant for people
// watching a terminal.
func WithPretty(pretty bool) Option {
	return func(s *settings) {
		s.pretty = pretty
	}
}

// WithJSON selects slog's JSON handler. It wins over WithPretty so a
// machine-readable sink never receives ANSI escapes.
func WithJSON(json bool) Option {
	return func(s *settings) {
		s.json = json
	}
}

// WithWriter sets the output. Defaults to os.Stderr so logs never mix with
// replies streamed to stdout.
func WithWriter(w io.Writer) Option {
	return func(s *settings) {
		s.out = w
	}
}

// WithPrefix labels every pretty record, e.g. "devserver".
func WithPrefix(prefix string) Option {
	return func(s *settings) {
		s.prefix = prefix
	}
}
