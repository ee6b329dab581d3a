package observe

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
)

// LogLevel represents a logging level.
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLogLevel parses a string log level. Unknown values map to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// structuredLogger writes one JSON object per line through zerolog.
type structuredLogger struct {
	zl zerolog.Logger
}

// NewLogger creates a new structured logger with the given level.
func NewLogger(level string) Logger {
	return NewLoggerWithWriter(level, os.Stderr)
}

// NewLoggerWithWriter creates a new structured logger with a custom writer.
// Writes to w are serialized, so w need not be safe for concurrent use.
func NewLoggerWithWriter(level string, w io.Writer) Logger {
	zl := zerolog.New(zerolog.SyncWriter(w)).
		Level(ParseLogLevel(level).zerolog()).
		With().Timestamp().Logger()
	return &structuredLogger{zl: zl}
}

// WithService returns a logger with service context attached.
func (l *structuredLogger) WithService(svc ServiceMeta) Logger {
	ctx := l.zl.With().Str("service.name", svc.Name)
	if svc.Address != "" {
		ctx = ctx.Str("service.address", svc.Address)
	}
	return &structuredLogger{zl: ctx.Logger()}
}

func (l *structuredLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(l.zl.Info(), msg, fields)
}

func (l *structuredLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(l.zl.Warn(), msg, fields)
}

func (l *structuredLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(l.zl.Error(), msg, fields)
}

func (l *structuredLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(l.zl.Debug(), msg, fields)
}

func (l *structuredLogger) log(e *zerolog.Event, msg string, fields []Field) {
	// nil when the level is filtered out
	if e == nil {
		return
	}
	for _, f := range fields {
		if isRedactedField(f.Key) {
			e = e.Str(f.Key, "[REDACTED]")
			continue
		}
		e = e.Interface(f.Key, f.Value)
	}
	e.Msg(msg)
}

func isRedactedField(key string) bool {
	for _, k := range RedactedFields {
		if k == key {
			return true
		}
	}
	return false
}

type noopLogger struct{}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return noopLogger{} }

func (noopLogger) Info(ctx context.Context, msg string, fields ...Field)  {}
func (noopLogger) Warn(ctx context.Context, msg string, fields ...Field)  {}
func (noopLogger) Error(ctx context.Context, msg string, fields ...Field) {}
func (noopLogger) Debug(ctx context.Context, msg string, fields ...Field) {}
func (l noopLogger) WithService(ServiceMeta) Logger                       { return l }
