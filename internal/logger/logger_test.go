package logger_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillpress/prerender/internal/logger"
)

func TestNew(t *testing.T) {
	for _, debug := range []bool{true, false} {
		log, err := logger.New(debug)
		require.NoError(t, err)
		require.NotNil(t, log)

		// Must not panic.
		log.Debug("debug message", logger.String("k", "v"))
		log.Info("info message", logger.Int("n", 1))
		log.Warn("warn message", logger.Bool("flag", true))
	}
}

func TestWithAttachesFields(t *testing.T) {
	log := logger.NewNop()

	child := log.With(logger.String("service", "prerender"))
	require.NotNil(t, child)
	assert.NotPanics(t, func() {
		child.Error("failed", logger.Error(errors.New("boom")))
	})
}

func TestNopLoggerDiscards(t *testing.T) {
	log := logger.NewNop()
	assert.NotPanics(t, func() {
		log.Info("discarded")
		assert.NoError(t, log.Sync())
	})
}
