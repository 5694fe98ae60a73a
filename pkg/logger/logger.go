// Package logger wraps zap with the small surface the service needs:
// leveled key-value logging plus per-request child loggers.
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger configured for the current environment
type Logger struct {
	base  *zap.Logger
	sugar *zap.SugaredLogger
}

// New creates a logger for the given level and environment. Development
// gets human-readable console output; everything else logs JSON.
func New(level, environment string) *Logger {
	var cfg zap.Config
	if environment == "development" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if lvl, err := zapcore.ParseLevel(level); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	base, err := cfg.Build()
	if err != nil {
		base = zap.Must(zap.NewProduction())
	}

	return &Logger{
		base:  base,
		sugar: base.WithOptions(zap.AddCallerSkip(1)).Sugar(),
	}
}

// NewNop returns a logger that discards everything. Intended for tests.
func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{base: base, sugar: base.Sugar()}
}

// Zap exposes the underlying zap logger for packages that take one directly
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// Debug logs a debug message with alternating keys and values
func (l *Logger) Debug(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

// Info logs an info message with alternating keys and values
func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

// Warn logs a warning with alternating keys and values
func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

// Error logs an error with alternating keys and values
func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Fatal logs the message and exits the process
func (l *Logger) Fatal(msg string, keysAndValues ...interface{}) {
	l.sugar.Fatalw(msg, keysAndValues...)
}

// With returns a child logger carrying the given key-value context
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	sugar := l.sugar.With(keysAndValues...)
	return &Logger{base: sugar.Desugar(), sugar: sugar}
}

// ForRequest returns a request-scoped logger annotated with the request
// id, HTTP method and path.
func (l *Logger) ForRequest(requestID, method, path string) *zap.SugaredLogger {
	return l.base.Sugar().With(
		"request_id", requestID,
		"method", method,
		"path", path,
	)
}

// Sync flushes buffered log entries
func (l *Logger) Sync() error {
	return l.base.Sync()
}
