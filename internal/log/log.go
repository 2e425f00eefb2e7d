// Package log provides structured logging for go-vss.
// It wraps zap with sensible defaults for production use.
package log

import (
	"os"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger atomic.Pointer[zap.SugaredLogger]
	once   sync.Once
)

// Init initializes the global logger with the specified level.
// Valid levels: "debug", "info", "warn", "error"
func Init(level string) {
	once.Do(func() {
		lvl := zap.NewAtomicLevel()
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl.SetLevel(zap.InfoLevel)
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

		// Use JSON in production, console in development
		var enc zapcore.Encoder
		if os.Getenv("GO_ENV") == "production" {
			enc = zapcore.NewJSONEncoder(encCfg)
		} else {
			encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
			enc = zapcore.NewConsoleEncoder(encCfg)
		}

		core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), lvl)
		z := zap.New(core, zap.AddStacktrace(zap.ErrorLevel))
		zap.ReplaceGlobals(z)
		logger.Store(z.Sugar())
	})
}

// SetLogger replaces the global logger. Used by tests to capture output.
func SetLogger(z *zap.Logger) {
	once.Do(func() {})
	logger.Store(z.Sugar())
}

// L returns the global logger instance.
func L() *zap.SugaredLogger {
	if l := logger.Load(); l != nil {
		return l
	}
	Init("info")
	return logger.Load()
}

// Debug logs at debug level.
func Debug(msg string, args ...any) {
	L().Debugw(msg, args...)
}

// Info logs at info level.
func Info(msg string, args ...any) {
	L().Infow(msg, args...)
}

// Warn logs at warn level.
func Warn(msg string, args ...any) {
	L().Warnw(msg, args...)
}

// Error logs at error level.
func Error(msg string, args ...any) {
	L().Errorw(msg, args...)
}

// With returns a logger with the given attributes.
func With(args ...any) *zap.SugaredLogger {
	return L().With(args...)
}

// Sync flushes any buffered log entries.
func Sync() {
	_ = L().Sync()
}
