// Package log provides a small structured key/value logger with leveled
// output, pluggable sinks and request-scoped context fields.
package log

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"
)

// Logger emits structured entries to its sinks at or above its level.
type Logger struct {
	mu     sync.RWMutex
	level  Level
	sinks  []Sink
	fields map[string]any
}

// New creates a logger with the given minimum level and sinks.
func New(level Level, sinks ...Sink) *Logger {
	return &Logger{
		level:  level,
		sinks:  sinks,
		fields: make(map[string]any),
	}
}

// SetLevel changes the minimum log level.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// With returns a child logger carrying additional base fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	l.mu.RLock()
	fields := make(map[string]any, len(l.fields))
	for k, v := range l.fields {
		fields[k] = v
	}
	level := l.level
	sinks := l.sinks
	l.mu.RUnlock()

	applyPairs(fields, keysAndValues)
	return &Logger{level: level, sinks: sinks, fields: fields}
}

// Close closes every sink.
func (l *Logger) Close() {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.sinks {
		_ = s.Close()
	}
}

func (l *Logger) log(level Level, ctx context.Context, msg string, keysAndValues ...any) {
	l.mu.RLock()
	min := l.level
	sinks := l.sinks
	base := l.fields
	l.mu.RUnlock()

	if !min.Enables(level) {
		return
	}

	e := Entry{
		Time:    time.Now(),
		Level:   level,
		Message: msg,
		Fields:  make(map[string]any, len(base)+len(keysAndValues)/2),
	}
	for k, v := range base {
		e.Fields[k] = v
	}
	if ctx != nil {
		e.RequestID = RequestIDFromContext(ctx)
	}
	applyPairs(e.Fields, keysAndValues)

	for _, s := range sinks {
		if err := s.Write(e); err != nil {
			fmt.Fprintf(os.Stderr, "log sink failed: %v\n", err)
		}
	}
}

// applyPairs folds alternating key/value arguments into fields. A trailing
// key without a value, or a non-string key, is dropped.
func applyPairs(fields map[string]any, keysAndValues []any) {
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
}

// Debug logs at Debug level.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.log(Debug, nil, msg, keysAndValues...)
}

// Info logs at Info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.log(Info, nil, msg, keysAndValues...)
}

// Warn logs at Warn level.
func (l *Logger) Warn(msg string, keysAndValues ...any) {
	l.log(Warn, nil, msg, keysAndValues...)
}

// Error logs at Error level.
func (l *Logger) Error(msg string, keysAndValues ...any) {
	l.log(Error, nil, msg, keysAndValues...)
}

// Fatal logs at Fatal level. Exiting is the caller's responsibility.
func (l *Logger) Fatal(msg string, keysAndValues ...any) {
	l.log(Fatal, nil, msg, keysAndValues...)
}

// DebugCtx logs at Debug level with context.
func (l *Logger) DebugCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Debug, ctx, msg, keysAndValues...)
}

// InfoCtx logs at Info level with context.
func (l *Logger) InfoCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Info, ctx, msg, keysAndValues...)
}

// WarnCtx logs at Warn level with context.
func (l *Logger) WarnCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Warn, ctx, msg, keysAndValues...)
}

// ErrorCtx logs at Error level with context.
func (l *Logger) ErrorCtx(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(Error, ctx, msg, keysAndValues...)
}

// --- Global logger ---

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// SetDefault sets the global default logger.
func SetDefault(l *Logger) {
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
}

// Default returns the global logger, creating a silent one if unset.
func Default() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l == nil {
		l = New(Fatal)
		SetDefault(l)
	}
	return l
}

// GlobalDebug logs at Debug level on the default logger.
func GlobalDebug(msg string, keysAndValues ...any) {
	Default().Debug(msg, keysAndValues...)
}

// GlobalInfo logs at Info level on the default logger.
func GlobalInfo(msg string, keysAndValues ...any) {
	Default().Info(msg, keysAndValues...)
}

// GlobalWarn logs at Warn level on the default logger.
func GlobalWarn(msg string, keysAndValues ...any) {
	Default().Warn(msg, keysAndValues...)
}

// GlobalError logs at Error level on the default logger.
func GlobalError(msg string, keysAndValues ...any) {
	Default().Error(msg, keysAndValues...)
}

// GlobalFatal logs at Fatal level on the default logger, flushes it and
// exits the process.
func GlobalFatal(msg string, keysAndValues ...any) {
	Default().Fatal(msg, keysAndValues...)
	Default().Close()
	os.Exit(1)
}

// GlobalDebugCtx logs at Debug level with context on the default logger.
func GlobalDebugCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().DebugCtx(ctx, msg, keysAndValues...)
}

// GlobalInfoCtx logs at Info level with context on the default logger.
func GlobalInfoCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().InfoCtx(ctx, msg, keysAndValues...)
}

// GlobalWarnCtx logs at Warn level with context on the default logger.
func GlobalWarnCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().WarnCtx(ctx, msg, keysAndValues...)
}

// GlobalErrorCtx logs at Error level with context on the default logger.
func GlobalErrorCtx(ctx context.Context, msg string, keysAndValues ...any) {
	Default().ErrorCtx(ctx, msg, keysAndValues...)
}
