package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var global *zap.SugaredLogger

// Init builds the process-wide sugared logger at the requested level.
// Call once from main before any component logs.
func Init(level string) error {
	parsed, err := zapcore.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(parsed)
	cfg.DisableStacktrace = true

	z, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}

	global = z.Sugar()
	return nil
}

// Logger returns the process logger. It must return a non-nil
// *SugaredLogger even before Init runs, so packages can log
// unconditionally.
func Logger() *zap.SugaredLogger {
	if global == nil {
		return zap.NewNop().Sugar()
	}
	return global
}

// Sync flushes buffered log entries. Safe to call on the no-op logger.
func Sync() {
	if global != nil {
		_ = global.Sync()
	}
}
