// Package logging builds the zap logger used throughout the shell and
// poller. It is threaded explicitly through constructors rather than
// kept behind a package-level global, so tests can install an observer
// core instead.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-shaped zap logger at the given level
// ("debug", "info", "warn", "error"). Output is JSON to stderr, matching
// how the shell's operators expect to pipe logs into log aggregation.
func New(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("logging: invalid level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// NewNop returns a logger that discards everything, for tests that don't
// want to assert on log output.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
