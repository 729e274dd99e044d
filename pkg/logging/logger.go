package logging

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for structured logging.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	WithError(err error) Logger
	// Named adds a dot-separated component segment to the logger name.
	Named(name string) Logger
}

// Field represents a key-value pair for structured logging.
type Field struct {
	Key   string
	Value interface{}
}

// NewField creates a new log field.
func NewField(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// zapLogger is the zap-based implementation of Logger.
type zapLogger struct {
	logger *zap.Logger
}

// NewLogger creates a logger writing to stdout.
// level: debug, info, warn, error (empty or unknown levels log at info)
// format: json, console
func NewLogger(level, format string) (Logger, error) {
	zapLevel, err := zapcore.ParseLevel(level)
	if err != nil {
		zapLevel = zapcore.InfoLevel
	}
	if format != "json" && format != "console" {
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "timestamp"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeDuration = zapcore.MillisDurationEncoder
	if format == "console" {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	config := zap.Config{
		Level:             zap.NewAtomicLevelAt(zapLevel),
		Encoding:          format,
		EncoderConfig:     encoderConfig,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     true,
		DisableStacktrace: true,
	}

	logger, err := config.Build()
	if err != nil {
		return nil, err
	}
	return &zapLogger{logger: logger}, nil
}

// Debug logs a debug message.
func (z *zapLogger) Debug(msg string, fields ...Field) {
	z.logger.Debug(msg, z.fieldsToZap(fields)...)
}

// Info logs an info message.
func (z *zapLogger) Info(msg string, fields ...Field) {
	z.logger.Info(msg, z.fieldsToZap(fields)...)
}

// Warn logs a warning message.
func (z *zapLogger) Warn(msg string, fields ...Field) {
	z.logger.Warn(msg, z.fieldsToZap(fields)...)
}

// Error logs an error message.
func (z *zapLogger) Error(msg string, fields ...Field) {
	z.logger.Error(msg, z.fieldsToZap(fields)...)
}

// With creates a new logger with additional fields.
func (z *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{logger: z.logger.With(z.fieldsToZap(fields)...)}
}

// WithError creates a new logger with an error field.
func (z *zapLogger) WithError(err error) Logger {
	return &zapLogger{logger: z.logger.With(zap.Error(err))}
}

func (z *zapLogger) Named(name string) Logger {
	return &zapLogger{logger: z.logger.Named(name)}
}

// fieldsToZap converts Field slice to zap fields.
func (z *zapLogger) fieldsToZap(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		switch v := f.Value.(type) {
		case string:
			zapFields = append(zapFields, zap.String(f.Key, v))
		case int:
			zapFields = append(zapFields, zap.Int(f.Key, v))
		case int64:
			zapFields = append(zapFields, zap.Int64(f.Key, v))
		case time.Duration:
			zapFields = append(zapFields, zap.Duration(f.Key, v))
		case []int:
			zapFields = append(zapFields, zap.Ints(f.Key, v))
		case []string:
			zapFields = append(zapFields, zap.Strings(f.Key, v))
		case float64:
			zapFields = append(zapFields, zap.Float64(f.Key, v))
		case bool:
			zapFields = append(zapFields, zap.Bool(f.Key, v))
		case error:
			zapFields = append(zapFields, zap.NamedError(f.Key, v))
		default:
			zapFields = append(zapFields, zap.Any(f.Key, v))
		}
	}
	return zapFields
}

// Sync flushes any buffered log entries. Should be called before application exit.
func Sync(logger Logger) {
	if zl, ok := logger.(*zapLogger); ok {
		_ = zl.logger.Sync()
	}
}

// NewFromZap wraps an existing zap logger. Used by tests with zaptest/observer.
func NewFromZap(logger *zap.Logger) Logger {
	return &zapLogger{logger: logger}
}
