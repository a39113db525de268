// Package logging builds the zap logger shared by every component.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const defaultLevel = zapcore.InfoLevel

// New returns a production JSON logger at level ("debug", "info", "warn", "error").
// An unknown level falls back to info and is reported as a warning.
func New(level string, opts ...zap.Option) (*zap.Logger, error) {
	lvl, parseErr := zapcore.ParseLevel(level)
	if parseErr != nil {
		lvl = defaultLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	// stdout carries MCP traffic when serving over stdio
	cfg.OutputPaths = []string{"stderr"}

	logger, err := cfg.Build(opts...)
	if err != nil {
		return nil, err
	}
	if parseErr != nil {
		logger.Warn("invalid log level, using default",
			zap.String("level", level),
			zap.Stringer("default", defaultLevel),
			zap.Error(parseErr))
	}
	return logger, nil
}
