package telemetry

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Field names shared by every roster log line.
const (
	fieldComponent = "component"
	fieldRecordID  = "record_id"
	fieldPath      = "path"
)

// Logger is a zerolog logger carrying roster fields.
type Logger struct {
	zl zerolog.Logger

	// out is the log file owned by a logger from NewLogger. Derived loggers
	// leave it nil.
	out io.Closer
}

type loggerKey struct{}

// NewLogger builds a logger from cfg. Output is stderr, stdout or a file
// path opened for append, released by Close.
func NewLogger(cfg LoggingConfig) (*Logger, error) {
	w, err := openOutput(cfg.Output)
	if err != nil {
		return nil, err
	}
	l := NewLoggerWithWriter(cfg, w)
	if f, ok := w.(*os.File); ok && f != os.Stdout && f != os.Stderr {
		l.out = f
	}
	return l, nil
}

// Close releases the log file, if this logger opened one.
func (l *Logger) Close() error {
	if l == nil || l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}

// NewLoggerWithWriter builds a logger that writes to w.
func NewLoggerWithWriter(cfg LoggingConfig, w io.Writer) *Logger {
	if cfg.Format == "console" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zl := zerolog.New(w).Level(levelOf(cfg.Level)).With().Timestamp().Logger()
	return &Logger{zl: zl}
}

// Nop returns a logger that drops every line.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

func openOutput(dest string) (io.Writer, error) {
	switch dest {
	case "", "stderr":
		return os.Stderr, nil
	case "stdout":
		return os.Stdout, nil
	}
	f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}

// levelOf maps a config level to zerolog, falling back to info.
func levelOf(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func (l *Logger) with(fn func(zerolog.Context) zerolog.Context) *Logger {
	return &Logger{zl: fn(l.zl.With()).Logger()}
}

// NewComponentLogger tags every line with component.
func (l *Logger) NewComponentLogger(component string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str(fieldComponent, component) })
}

// WithField adds one arbitrary field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

// WithRecordID tags lines with the student id they concern.
func (l *Logger) WithRecordID(id string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str(fieldRecordID, id) })
}

// WithPath tags lines with an import or export location.
func (l *Logger) WithPath(path string) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Str(fieldPath, path) })
}

func (l *Logger) WithError(err error) *Logger {
	return l.with(func(c zerolog.Context) zerolog.Context { return c.Err(err) })
}

// WithContext stores l in ctx.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerKey{}, l)
}

// FromContext returns the logger stored in ctx, or a no-op logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerKey{}).(*Logger); ok {
		return l
	}
	return Nop()
}

// Zerolog exposes the wrapped logger for packages that take zerolog directly.
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zl
}

func (l *Logger) Debug(msg string) { l.zl.Debug().Msg(msg) }
func (l *Logger) Info(msg string)  { l.zl.Info().Msg(msg) }
func (l *Logger) Warn(msg string)  { l.zl.Warn().Msg(msg) }
func (l *Logger) Error(msg string) { l.zl.Error().Msg(msg) }
