package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// SlogLogger implements Logger on top of log/slog.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger creates a text logger writing to w. tz controls timestamp rendering; nil means local time.
func NewSlogLogger(w io.Writer, level LogLevel, tz *time.Location) *SlogLogger {
	return newSlog(slog.NewTextHandler(w, handlerOptions(level, tz)))
}

// NewJSONLogger creates a JSON logger writing to w.
func NewJSONLogger(w io.Writer, level LogLevel, tz *time.Location) *SlogLogger {
	return newSlog(slog.NewJSONHandler(w, handlerOptions(level, tz)))
}

// FileConfig controls rotated file output.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Options selects the logger backend built by New.
type Options struct {
	Level  LogLevel
	Format string // "text" or "json"
	File   FileConfig
}

// New builds a logger from options. When a file path is set, output goes to both
// stdout and a lumberjack-rotated file.
func New(opts Options) (*SlogLogger, io.Closer) {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}
	if opts.File.Path != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    opts.File.MaxSizeMB,
			MaxBackups: opts.File.MaxBackups,
			MaxAge:     opts.File.MaxAgeDays,
			Compress:   opts.File.Compress,
		}
		w = io.MultiWriter(os.Stdout, rotator)
		closer = rotator
	}
	if strings.EqualFold(opts.Format, "json") {
		return NewJSONLogger(w, opts.Level, nil), closer
	}
	return NewSlogLogger(w, opts.Level, nil), closer
}

// NewDiscardLogger returns a logger that drops everything.
func NewDiscardLogger() *SlogLogger {
	return NewSlogLogger(io.Discard, LogLevelError, nil)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func newSlog(h slog.Handler) *SlogLogger {
	return &SlogLogger{logger: slog.New(h)}
}

func handlerOptions(level LogLevel, tz *time.Location) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: ParseLevel(string(level)),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if tz != nil && a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
				a.Value = slog.TimeValue(a.Value.Time().In(tz))
			}
			return a
		},
	}
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case string(LogLevelDebug):
		return slog.LevelDebug
	case string(LogLevelWarn), "warning":
		return slog.LevelWarn
	case string(LogLevelError):
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *SlogLogger) Debug(msg string, fields ...Field) { l.logger.Debug(msg, toAttrs(fields)...) }

func (l *SlogLogger) Info(msg string, fields ...Field) { l.logger.Info(msg, toAttrs(fields)...) }

func (l *SlogLogger) Warn(msg string, fields ...Field) { l.logger.Warn(msg, toAttrs(fields)...) }

func (l *SlogLogger) Error(msg string, fields ...Field) { l.logger.Error(msg, toAttrs(fields)...) }

func (l *SlogLogger) With(fields ...Field) Logger {
	return &SlogLogger{logger: l.logger.With(toAttrs(fields)...)}
}

func (l *SlogLogger) Module(name string) Logger {
	return &SlogLogger{logger: l.logger.With(slog.String("module", name))}
}

func (l *SlogLogger) WithContext(ctx context.Context) Logger {
	if id := requestIDFrom(ctx); id != "" {
		return &SlogLogger{logger: l.logger.With(slog.String("request_id", id))}
	}
	return l
}
