package logging

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is the logging interface used across the SDK.
// Fields are structured key/value pairs attached to the log entry.
type Logger interface {
	Debug(ctx context.Context, msg string, fields map[string]interface{})
	Info(ctx context.Context, msg string, fields map[string]interface{})
	Warn(ctx context.Context, msg string, fields map[string]interface{})
	Error(ctx context.Context, msg string, fields map[string]interface{})
}

type zerologLogger struct {
	logger zerolog.Logger
}

// New creates a Logger backed by zerolog, writing JSON to stderr.
// The level is taken from the LOG_LEVEL environment variable
// (debug, info, warn, error); it defaults to info.
func New() Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	return &zerologLogger{logger: logger}
}

// NewWithLogger wraps an existing zerolog.Logger, for callers that already
// configured their own output or level.
func NewWithLogger(logger zerolog.Logger) Logger {
	return &zerologLogger{logger: logger}
}

func (l *zerologLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(l.logger.Debug(), msg, fields)
}

func (l *zerologLogger) Info(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(l.logger.Info(), msg, fields)
}

func (l *zerologLogger) Warn(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(l.logger.Warn(), msg, fields)
}

func (l *zerologLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {
	l.emit(l.logger.Error(), msg, fields)
}

func (l *zerologLogger) emit(event *zerolog.Event, msg string, fields map[string]interface{}) {
	for key, value := range fields {
		event = event.Interface(key, value)
	}
	event.Msg(msg)
}

type noOpLogger struct{}

// NewNoOpLogger returns a Logger that discards all log entries.
// Useful for tests and for callers that do not want SDK logging.
func NewNoOpLogger() Logger {
	return &noOpLogger{}
}

func (l *noOpLogger) Debug(ctx context.Context, msg string, fields map[string]interface{}) {}
func (l *noOpLogger) Info(ctx context.Context, msg string, fields map[string]interface{})  {}
func (l *noOpLogger) Warn(ctx context.Context, msg string, fields map[string]interface{})  {}
func (l *noOpLogger) Error(ctx context.Context, msg string, fields map[string]interface{}) {}
