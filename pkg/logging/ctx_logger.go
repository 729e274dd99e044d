package logging

import (
	"context"
)

type contextKey string

const loggerKey contextKey = "logger"

// correlationKeys are the plain string context keys under which the HTTP
// middleware stores request and trace ids.
var correlationKeys = []string{"request_id", "trace_id"}

// WithLogger attaches a logger to the context.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from the context.
// Returns a no-op logger if not found.
func FromContext(ctx context.Context) Logger {
	return FromContextOr(ctx, &noOpLogger{})
}

// FromContextOr returns the request logger stored in ctx. Without one it
// returns fallback, carrying any request or trace id found in ctx.
func FromContextOr(ctx context.Context, fallback Logger) Logger {
	if logger, ok := ctx.Value(loggerKey).(Logger); ok {
		return logger
	}
	if fields := correlationFields(ctx); len(fields) > 0 {
		return fallback.With(fields...)
	}
	return fallback
}

func correlationFields(ctx context.Context) []Field {
	var fields []Field
	for _, key := range correlationKeys {
		//nolint:staticcheck // the middleware stores ids under plain string keys
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			fields = append(fields, NewField(key, v))
		}
	}
	return fields
}

type noOpLogger struct{}

func (n *noOpLogger) Debug(msg string, fields ...Field) {}
func (n *noOpLogger) Info(msg string, fields ...Field)  {}
func (n *noOpLogger) Warn(msg string, fields ...Field)  {}
func (n *noOpLogger) Error(msg string, fields ...Field) {}
func (n *noOpLogger) With(fields ...Field) Logger       { return n }
func (n *noOpLogger) WithError(err error) Logger        { return n }
func (n *noOpLogger) Named(name string) Logger          { return n }

// NewNopLogger returns a logger that discards everything.
func NewNopLogger() Logger {
	return &noOpLogger{}
}
