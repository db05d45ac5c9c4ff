// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package mlog constructs the zap loggers that every long-lived
// component in this module takes by injection, the same way the
// validator and protocol packages this module is built from take a
// logger through their constructors rather than reaching for a
// package-level global. Components log with zap's own Field
// constructors (zap.Stringer, zap.Uint64, zap.Error, ...) directly
// against the *zap.Logger they were given.
package mlog

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level names accepted by Config.Level, matching zapcore's own names.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Config controls how New builds the root logger.
type Config struct {
	// Level is one of the Level* constants above. Defaults to LevelInfo
	// on an empty string.
	Level string
	// Development enables human-readable console output and disables
	// sampling. Intended for local runs, not production
	// nodes.
	Development bool
	// Component is attached to every record as the "component" field
	// and also used as the logger's name.
	Component string
}

// New builds a root *zap.Logger per cfg. Production configuration
// mirrors zap.NewProductionConfig (JSON to stderr, sampled, ISO8601
// timestamps); Development swaps in zap.NewDevelopmentConfig's
// console encoder.
func New(cfg Config) (*zap.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	var zcfg zap.Config
	if cfg.Development {
		zcfg = zap.NewDevelopmentConfig()
	} else {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	zcfg.EncoderConfig.TimeKey = "ts"
	zcfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zcfg.Build()
	if err != nil {
		return nil, fmt.Errorf("mlog: build logger: %w", err)
	}
	if cfg.Component != "" {
		logger = logger.Named(cfg.Component).With(zap.String("component", cfg.Component))
	}
	return logger, nil
}

// NewNop returns a logger that discards everything, for tests and for
// callers that have explicitly opted out of logging.
func NewNop() *zap.Logger {
	return zap.NewNop()
}

func parseLevel(s string) (zapcore.Level, error) {
	switch s {
	case "", LevelInfo:
		return zapcore.InfoLevel, nil
	case LevelDebug:
		return zapcore.DebugLevel, nil
	case LevelWarn:
		return zapcore.WarnLevel, nil
	case LevelError:
		return zapcore.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("mlog: unknown level %q", s)
	}
}
