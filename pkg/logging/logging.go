// Package logging builds the zap loggers used across ivgraph. Every
// package that logs takes a *zap.Logger rather than calling a global.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options controls logger construction.
type Options struct {
	// Development selects a human-readable console encoder with debug
	// level enabled. Production selects JSON output at info level.
	Development bool
	// Level overrides the default level for the chosen mode when set
	// to a non-empty string ("debug", "info", "warn", "error").
	Level string
}

// New builds a *zap.Logger per Options. Callers that need no logging at
// all should use zap.NewNop() directly rather than calling this.
func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Development {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if opts.Level != "" {
		lvl, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	return cfg.Build()
}

// Nop returns a logger that discards everything, used as the
// zero-value default for components constructed without a logger.
func Nop() *zap.Logger { return zap.NewNop() }

// QueryFields builds the structured fields logged around a query
// execution. Caller-supplied parameter values are never included here,
// only shape (hash, duration, row count), to avoid leaking PII.
func QueryFields(queryHash string, durationMS int64, rowCount int) []zap.Field {
	return []zap.Field{
		zap.String("query_hash", queryHash),
		zap.Int64("duration_ms", durationMS),
		zap.Int("row_count", rowCount),
	}
}
