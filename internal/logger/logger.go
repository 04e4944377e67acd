/**
 * @description
 * Process logger for the Farm2Consumer backend.
 * Info messages go to stdout and errors to stderr so log collectors classify them correctly.
 *
 * @dependencies
 * - go.uber.org/zap: encoder and sinks
 */

package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var base *zap.Logger

func init() {
	base = build(zapcore.Lock(os.Stdout), zapcore.Lock(os.Stderr))
}

func build(info, errs zapcore.WriteSyncer) *zap.Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	enc := zapcore.NewConsoleEncoder(encCfg)

	belowError := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.DebugLevel && l < zapcore.ErrorLevel
	})
	atLeastError := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= zapcore.ErrorLevel
	})

	core := zapcore.NewTee(
		zapcore.NewCore(enc, info, belowError),
		zapcore.NewCore(enc, errs, atLeastError),
	)
	return zap.New(core)
}

// Info logs an info message to stdout
func Info(format string, v ...interface{}) {
	base.Info(fmt.Sprintf(format, v...))
}

// Warn logs a warning to stdout
func Warn(format string, v ...interface{}) {
	base.Warn(fmt.Sprintf(format, v...))
}

// Error logs an error message to stderr
func Error(format string, v ...interface{}) {
	base.Error(fmt.Sprintf(format, v...))
}

// Fatal logs an error and exits
func Fatal(format string, v ...interface{}) {
	base.Fatal(fmt.Sprintf(format, v...))
}

// Zap exposes the underlying logger for libraries that take a *zap.Logger.
func Zap() *zap.Logger {
	return base
}

// Sync flushes buffered entries.
func Sync() {
	_ = base.Sync()
}
