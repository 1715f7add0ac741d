// Package log is the leveled logger of the module. It adds a trace level
// below debug and tags every record with the emitting object.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// Level widens the slog levels by a trace level below debug and a fatal
// level above error.
type Level int

const (
	LevelTrace Level = -8
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
	LevelFatal Level = 12
)

var levelNames = map[Level]string{
	LevelTrace: "TRACE",
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
	LevelFatal: "FATAL",
}

func (level Level) String() string {
	if name, ok := levelNames[level]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseLevel parses the string representation of a log level.
func ParseLevel(s string) (Level, error) {
	for level, name := range levelNames {
		if name == s {
			return level, nil
		}
	}
	return LevelInfo, fmt.Errorf("invalid log level: %s", s)
}

type Logger struct {
	level *slog.LevelVar
	out   *slog.Logger
}

var defaultLogger = NewText(os.Stderr)

// Default returns the process-wide logger.
func Default() *Logger {
	return defaultLogger
}

// NewText creates a logger writing text records to w.
func NewText(w io.Writer) *Logger {
	level := &slog.LevelVar{}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// slog has no names for the widened levels.
			if a.Key == slog.LevelKey {
				a.Value = slog.StringValue(Level(a.Value.Any().(slog.Level)).String())
			}
			return a
		},
	})
	return &Logger{
		level: level,
		out:   slog.New(handler),
	}
}

func (l *Logger) Level() Level {
	return Level(l.level.Level())
}

func (l *Logger) SetLevel(level Level) {
	l.level.Set(slog.Level(level))
}

func (l *Logger) log(level Level, src any, msg string, v ...any) {
	if Level(l.level.Level()) > level {
		return
	}
	if src != nil {
		v = append([]any{"src", tag(src)}, v...)
	}
	l.out.Log(context.Background(), slog.Level(level), msg, v...)
}

func tag(src any) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", src)
}

func Trace(src any, msg string, v ...any) {
	defaultLogger.log(LevelTrace, src, msg, v...)
}

func Debug(src any, msg string, v ...any) {
	defaultLogger.log(LevelDebug, src, msg, v...)
}

func Info(src any, msg string, v ...any) {
	defaultLogger.log(LevelInfo, src, msg, v...)
}

func Warn(src any, msg string, v ...any) {
	defaultLogger.log(LevelWarn, src, msg, v...)
}

func Error(src any, msg string, v ...any) {
	defaultLogger.log(LevelError, src, msg, v...)
}

func Fatal(src any, msg string, v ...any) {
	defaultLogger.log(LevelFatal, src, msg, v...)
	os.Exit(1)
}
