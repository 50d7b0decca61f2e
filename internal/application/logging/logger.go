package logging

import "context"

// Log levels understood by every sink
const (
	LevelDebug   = "DEBUG"
	LevelInfo    = "INFO"
	LevelWarning = "WARNING"
	LevelError   = "ERROR"
)

// Logger is the structured logger handed to application code through the context
type Logger interface {
	Log(level, message string, metadata map[string]interface{})
}

type contextKey int

const (
	loggerKey contextKey = iota
)

// WithLogger adds a logger to the context
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// LoggerFromContext extracts the logger from context, or returns a no-op logger if not found
func LoggerFromContext(ctx context.Context) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	return &noOpLogger{}
}

// WithFields returns a logger that merges fields into every entry
func WithFields(logger Logger, fields map[string]interface{}) Logger {
	return &fieldLogger{inner: logger, fields: fields}
}

type fieldLogger struct {
	inner  Logger
	fields map[string]interface{}
}

func (l *fieldLogger) Log(level, message string, metadata map[string]interface{}) {
	merged := make(map[string]interface{}, len(l.fields)+len(metadata))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range metadata {
		merged[k] = v
	}
	l.inner.Log(level, message, merged)
}

type noOpLogger struct{}

func (l *noOpLogger) Log(level, message string, metadata map[string]interface{}) {}
