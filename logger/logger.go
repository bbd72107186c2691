// Package logger defines the structured logging contract used by the DBAL and its
// zerolog-backed implementation.
package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the structured logging contract.
type Logger interface {
	Info() LogEvent
	Error() LogEvent
	Debug() LogEvent
	Warn() LogEvent
	WithContext(ctx context.Context) Logger
	WithFields(fields map[string]any) Logger
}

// LogEvent is a log record under construction. Nothing is written until Msg or Msgf.
type LogEvent interface {
	Msg(msg string)
	Msgf(format string, args ...any)
	Err(err error) LogEvent
	Str(key, value string) LogEvent
	Int(key string, value int) LogEvent
	Int64(key string, value int64) LogEvent
	Bool(key string, value bool) LogEvent
	Dur(key string, d time.Duration) LogEvent
	Interface(key string, i any) LogEvent
}

// ZeroLogger implements Logger on top of zerolog. Field values whose keys look sensitive
// are masked before they reach the output.
type ZeroLogger struct {
	zlog   *zerolog.Logger
	filter *SensitiveDataFilter
}

var _ Logger = (*ZeroLogger)(nil)

// New creates a logger writing to stdout. Unknown levels fall back to info; pretty selects
// the human readable console format.
func New(level string, pretty bool) *ZeroLogger {
	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(out, level)
}

// NewWithWriter creates a JSON logger writing to w.
func NewWithWriter(w io.Writer, level string) *ZeroLogger {
	zLevel, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		zLevel = zerolog.InfoLevel
	}
	l := zerolog.New(w).Level(zLevel).With().Timestamp().Logger()
	return &ZeroLogger{zlog: &l, filter: NewSensitiveDataFilter(nil)}
}

// Nop returns a logger that discards everything.
func Nop() *ZeroLogger {
	l := zerolog.Nop()
	return &ZeroLogger{zlog: &l, filter: NewSensitiveDataFilter(nil)}
}

// WithContext returns the logger stored in ctx by zerolog, if any, keeping the filter.
func (l *ZeroLogger) WithContext(ctx context.Context) Logger {
	if ctx == nil {
		return l
	}
	zl := zerolog.Ctx(ctx)
	if zl == nil || zl.GetLevel() == zerolog.Disabled {
		return l
	}
	return &ZeroLogger{zlog: zl, filter: l.filter}
}

// WithFields returns a logger adding fields to every record.
func (l *ZeroLogger) WithFields(fields map[string]any) Logger {
	log := l.zlog.With().Fields(l.filter.FilterFields(fields)).Logger()
	return &ZeroLogger{zlog: &log, filter: l.filter}
}

func (l *ZeroLogger) Info() LogEvent  { return l.event(l.zlog.Info()) }
func (l *ZeroLogger) Error() LogEvent { return l.event(l.zlog.Error()) }
func (l *ZeroLogger) Debug() LogEvent { return l.event(l.zlog.Debug()) }
func (l *ZeroLogger) Warn() LogEvent  { return l.event(l.zlog.Warn()) }

func (l *ZeroLogger) event(e *zerolog.Event) LogEvent {
	return &eventAdapter{event: e, filter: l.filter}
}

// eventAdapter adapts *zerolog.Event to LogEvent. zerolog returns a nil event for disabled
// levels and every method below is nil-safe on it.
type eventAdapter struct {
	event  *zerolog.Event
	filter *SensitiveDataFilter
}

func (a *eventAdapter) Msg(msg string) { a.event.Msg(msg) }

func (a *eventAdapter) Msgf(format string, args ...any) { a.event.Msgf(format, args...) }

func (a *eventAdapter) Err(err error) LogEvent {
	a.event = a.event.Err(err)
	return a
}

func (a *eventAdapter) Str(key, value string) LogEvent {
	a.event = a.event.Str(key, a.filter.FilterString(key, value))
	return a
}

func (a *eventAdapter) Int(key string, value int) LogEvent {
	a.event = a.event.Int(key, value)
	return a
}

func (a *eventAdapter) Int64(key string, value int64) LogEvent {
	a.event = a.event.Int64(key, value)
	return a
}

func (a *eventAdapter) Bool(key string, value bool) LogEvent {
	a.event = a.event.Bool(key, value)
	return a
}

func (a *eventAdapter) Dur(key string, d time.Duration) LogEvent {
	a.event = a.event.Dur(key, d)
	return a
}

func (a *eventAdapter) Interface(key string, i any) LogEvent {
	a.event = a.event.Interface(key, a.filter.FilterValue(key, i))
	return a
}
