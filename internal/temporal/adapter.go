// Package temporal bridges the project's zap logger to the Temporal SDK.
package temporal

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZapAdapter wraps a zap logger as a Temporal SDK logger. The SDK
// passes alternating key/value pairs, which zap's sugared logger
// accepts directly.
func NewZapAdapter(logger *zap.Logger) log.Logger {
	// Skip one caller frame so log sites point at SDK callers, not here.
	return &zapLogger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *zapLogger) Debug(msg string, keyvals ...interface{}) {
	l.sugar.Debugw(msg, keyvals...)
}

func (l *zapLogger) Info(msg string, keyvals ...interface{}) {
	l.sugar.Infow(msg, keyvals...)
}

func (l *zapLogger) Warn(msg string, keyvals ...interface{}) {
	l.sugar.Warnw(msg, keyvals...)
}

func (l *zapLogger) Error(msg string, keyvals ...interface{}) {
	l.sugar.Errorw(msg, keyvals...)
}

// With satisfies log.WithLogger so the SDK can attach workflow and
// activity metadata once instead of per line.
func (l *zapLogger) With(keyvals ...interface{}) log.Logger {
	return &zapLogger{sugar: l.sugar.With(keyvals...)}
}
