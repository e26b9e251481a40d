package hostinfo

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Logger is the logging interface accepted by Options. Arguments after msg
// are alternating key-value pairs, as with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter is a Logger backed by a *slog.Logger:
//
//	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
//	host, err := hostinfo.New(&hostinfo.Options{Logger: hostinfo.NewSlogAdapter(slog.New(h))})
type SlogAdapter struct {
	logger *slog.Logger
}

// NewSlogAdapter adapts logger. A nil logger means slog.Default().
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAdapter{logger: logger}
}

func (s *SlogAdapter) Debug(msg string, args ...any) { s.logger.Debug(msg, args...) }
func (s *SlogAdapter) Info(msg string, args ...any)  { s.logger.Info(msg, args...) }
func (s *SlogAdapter) Warn(msg string, args ...any)  { s.logger.Warn(msg, args...) }
func (s *SlogAdapter) Error(msg string, args ...any) { s.logger.Error(msg, args...) }

// DefaultLogger writes text to stderr at Info level.
func DefaultLogger() Logger {
	return LevelLogger(os.Stderr, slog.LevelInfo)
}

// DebugLogger writes text with source locations to stderr at Debug level,
// where strategy fall-through is reported.
func DebugLogger() Logger {
	return newSlogLogger(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: true,
	}))
}

// LevelLogger writes text to w (stderr if nil) at level.
func LevelLogger(w io.Writer, level slog.Level) Logger {
	return newSlogLogger(slog.NewTextHandler(orStderr(w), &slog.HandlerOptions{Level: level}))
}

// JSONLogger writes one JSON object per record to w (stderr if nil).
func JSONLogger(w io.Writer, level slog.Level) Logger {
	return newSlogLogger(slog.NewJSONHandler(orStderr(w), &slog.HandlerOptions{Level: level}))
}

func newSlogLogger(h slog.Handler) Logger {
	return &SlogAdapter{logger: slog.New(h)}
}

func orStderr(w io.Writer) io.Writer {
	if w == nil {
		return os.Stderr
	}
	return w
}

// NopLogger discards everything.
func NopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// toSlog returns a *slog.Logger that forwards to l. The platform layer
// logs through log/slog directly.
func toSlog(l Logger) *slog.Logger {
	switch v := l.(type) {
	case nil:
		return slog.Default()
	case *SlogAdapter:
		return v.logger
	case nopLogger:
		return slog.New(discardHandler{})
	}
	return slog.New(&loggerHandler{target: l})
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// loggerHandler is a slog.Handler that dispatches records to a Logger by
// level. Level filtering is left to the Logger.
type loggerHandler struct {
	target Logger
	attrs  []any
	group  string
}

func (h *loggerHandler) Enabled(context.Context, slog.Level) bool {
	return true
}

func (h *loggerHandler) Handle(_ context.Context, r slog.Record) error {
	args := make([]any, 0, len(h.attrs)+2*r.NumAttrs())
	args = append(args, h.attrs...)
	r.Attrs(func(a slog.Attr) bool {
		args = append(args, h.qualify(a.Key), a.Value.Any())
		return true
	})

	switch {
	case r.Level >= slog.LevelError:
		h.target.Error(r.Message, args...)
	case r.Level >= slog.LevelWarn:
		h.target.Warn(r.Message, args...)
	case r.Level >= slog.LevelInfo:
		h.target.Info(r.Message, args...)
	default:
		h.target.Debug(r.Message, args...)
	}
	return nil
}

func (h *loggerHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := &loggerHandler{target: h.target, group: h.group}
	next.attrs = append(next.attrs, h.attrs...)
	for _, a := range attrs {
		next.attrs = append(next.attrs, h.qualify(a.Key), a.Value.Any())
	}
	return next
}

func (h *loggerHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &loggerHandler{target: h.target, attrs: h.attrs, group: h.qualify(name)}
}

func (h *loggerHandler) qualify(key string) string {
	if h.group == "" {
		return key
	}
	return h.group + "." + key
}
