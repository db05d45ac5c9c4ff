// Copyright (C) 2026, Montana Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package mlog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewDefaultsToInfoLevel(t *testing.T) {
	logger, err := New(Config{Component: "engine"})
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNewHonorsExplicitLevel(t *testing.T) {
	logger, err := New(Config{Level: LevelDebug})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	require.Error(t, err)
}

func TestNewDevelopmentBuildsSuccessfully(t *testing.T) {
	logger, err := New(Config{Development: true, Component: "cli"})
	require.NoError(t, err)
	require.NotNil(t, logger)
}

func TestNopDiscardsWithoutPanicking(t *testing.T) {
	logger := NewNop()
	logger.Info("ignored", zapcore.Field{})
}
