// Package mlog defines the logging interface used throughout the client
// runtime and a zap-backed implementation.
package mlog

import (
	"context"
)

// Logger is the common logging interface implemented by every logging
// backend in this module.
type Logger interface {
	Info(args ...any)
	Infof(format string, args ...any)

	Warn(args ...any)
	Warnf(format string, args ...any)

	Error(args ...any)
	Errorf(format string, args ...any)

	Debug(args ...any)
	Debugf(format string, args ...any)

	WithFields(fields ...any) Logger

	Sync() error
}

type loggerContextKey string

const contextKey = loggerContextKey("mlog.logger")

// FromContext extracts the Logger bound to ctx, or a no-op logger if none
// was bound.
func FromContext(ctx context.Context) Logger {
	if v := ctx.Value(contextKey); v != nil {
		if l, ok := v.(Logger); ok {
			return l
		}
	}

	return NopLogger{}
}

// ContextWith returns a copy of ctx carrying logger.
func ContextWith(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, contextKey, logger)
}

// NopLogger discards everything. It is the default when no logger has been
// configured and is useful in tests.
type NopLogger struct{}

func (NopLogger) Info(args ...any)                  {}
func (NopLogger) Infof(format string, args ...any)  {}
func (NopLogger) Warn(args ...any)                  {}
func (NopLogger) Warnf(format string, args ...any)  {}
func (NopLogger) Error(args ...any)                 {}
func (NopLogger) Errorf(format string, args ...any) {}
func (NopLogger) Debug(args ...any)                 {}
func (NopLogger) Debugf(format string, args ...any) {}
func (NopLogger) WithFields(fields ...any) Logger   { return NopLogger{} }
func (NopLogger) Sync() error                       { return nil }
