package log

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/YuminosukeSato/nidsbench/pkg/errors"
)

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	zl zerolog.Logger
}

// NewZerologLogger creates a Logger writing JSON lines to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// NewConsoleLogger creates a Logger with zerolog's human readable console output.
func NewConsoleLogger(w io.Writer, level Level) *ZerologLogger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	zl := zerolog.New(out).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{zl: zl}
}

// Setup builds the process logger and routes pkg/errors warnings to it.
func Setup(w io.Writer, level string, console bool) (Logger, error) {
	lvl, ok := ParseLevel(level)
	if !ok {
		return nil, errors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}

	var logger *ZerologLogger
	if console {
		logger = NewConsoleLogger(w, lvl)
	} else {
		logger = NewZerologLogger(w, lvl)
	}
	errors.SetZerologWarnFunc(logger.warnFunc)
	return logger, nil
}

func (l *ZerologLogger) warnFunc(w error) {
	ev := l.zl.Warn()
	if m, ok := w.(zerolog.LogObjectMarshaler); ok {
		ev = ev.EmbedObject(m)
	}
	ev.Msg(w.Error())
}

// Debug implements Logger.Debug.
func (l *ZerologLogger) Debug(msg string, fields ...any) {
	emit(l.zl.Debug(), msg, fields)
}

// Info implements Logger.Info.
func (l *ZerologLogger) Info(msg string, fields ...any) {
	emit(l.zl.Info(), msg, fields)
}

// Warn implements Logger.Warn.
func (l *ZerologLogger) Warn(msg string, fields ...any) {
	emit(l.zl.Warn(), msg, fields)
}

// Error implements Logger.Error.
func (l *ZerologLogger) Error(msg string, fields ...any) {
	emit(l.zl.Error(), msg, fields)
}

// With implements Logger.With.
func (l *ZerologLogger) With(fields ...any) Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(fields); i += 2 {
		ctx = ctx.Interface(fmt.Sprint(fields[i]), fields[i+1])
	}
	return &ZerologLogger{zl: ctx.Logger()}
}

// Enabled implements Logger.Enabled.
func (l *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return toZerologLevel(level) >= l.zl.GetLevel()
}

// emit attaches fields to ev and sends it. A leading error field is logged
// under ErrorKey together with its cockroachdb stack trace.
func emit(ev *zerolog.Event, msg string, fields []any) {
	if ev == nil {
		return
	}
	if len(fields)%2 == 1 {
		if err, ok := fields[0].(error); ok {
			ev = withError(ev, ErrorKey, err)
			fields = fields[1:]
		}
	}
	for i := 0; i+1 < len(fields); i += 2 {
		key := fmt.Sprint(fields[i])
		switch v := fields[i+1].(type) {
		case error:
			ev = withError(ev, key, v)
		case zerolog.LogObjectMarshaler:
			ev = ev.Object(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}
	ev.Msg(msg)
}

func withError(ev *zerolog.Event, key string, err error) *zerolog.Event {
	ev = ev.AnErr(key, err)
	if st := errors.StackTrace(err); st != "" {
		ev = ev.Str(StacktraceKey, st)
	}
	return ev
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
