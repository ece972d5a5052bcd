// Package log is the logging layer of nidsbench: a slog-shaped Logger
// interface, a zerolog backend (JSON or console) and the attribute keys the
// pipeline and the evaluator log with.
//
//	logger, err := log.Setup(os.Stderr, "info", true)
//	logger.With(log.ComponentKey, "preprocessing").Info("Dropped constant columns",
//	    log.StepKey, "drop_constant",
//	    log.ColumnsKey, []string{"table_id"},
//	)
package log

import (
	"context"
	"strings"
)

// Logger takes a message plus alternating key/value fields, like log/slog.
// Error accepts a leading error value, which is logged under ErrorKey with
// its stack trace.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Warn(msg string, fields ...any)
	Error(msg string, fields ...any)

	// With returns a child logger carrying fields on every record.
	With(fields ...any) Logger

	Enabled(ctx context.Context, level Level) bool
}

// Level uses the slog.Level numbering.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

func (l Level) String() string {
	if s, ok := levelNames[l]; ok {
		return s
	}
	return "UNKNOWN"
}

// ParseLevel accepts the lower-case config spelling ("debug", "info",
// "warn", "error"). Unknown input yields (LevelInfo, false).
func ParseLevel(level string) (Level, bool) {
	for l, name := range levelNames {
		if level == strings.ToLower(name) {
			return l, true
		}
	}
	return LevelInfo, false
}

// Nop discards every record.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any)                {}
func (nopLogger) Info(string, ...any)                 {}
func (nopLogger) Warn(string, ...any)                 {}
func (nopLogger) Error(string, ...any)                {}
func (n nopLogger) With(...any) Logger                { return n }
func (nopLogger) Enabled(context.Context, Level) bool { return false }
