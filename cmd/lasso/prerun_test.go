package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveActor(t *testing.T) {
	prev := actorFlag
	t.Cleanup(func() { actorFlag = prev })

	actorFlag = "cli-actor"
	t.Setenv("LASSO_ACTOR", "env-actor")
	assert.Equal(t, "cli-actor", resolveActor())

	actorFlag = ""
	assert.Equal(t, "env-actor", resolveActor())

	t.Setenv("LASSO_ACTOR", "")
	t.Setenv("USER", "dana")
	assert.Equal(t, "dana", resolveActor())

	t.Setenv("USER", "")
	assert.Equal(t, "unknown", resolveActor())
}

func TestSetupLoggingLevels(t *testing.T) {
	loadTestConfig(t, "log-level: info\n")
	prevVerbose, prevQuiet := verboseFlag, quietFlag
	prevLogger := logger
	t.Cleanup(func() {
		verboseFlag, quietFlag = prevVerbose, prevQuiet
		logger = prevLogger
		if prevLogger != nil {
			slog.SetDefault(prevLogger)
		}
	})

	verboseFlag, quietFlag = false, false
	setupLogging()
	assert.True(t, logger.Enabled(t.Context(), slog.LevelInfo))
	assert.False(t, logger.Enabled(t.Context(), slog.LevelDebug))

	verboseFlag = true
	setupLogging()
	assert.True(t, logger.Enabled(t.Context(), slog.LevelDebug))

	verboseFlag, quietFlag = false, true
	setupLogging()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelWarn))
	assert.True(t, logger.Enabled(t.Context(), slog.LevelError))
}
