package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level  string
		format string
	}{
		{level: "debug", format: "json"},
		{level: "info", format: "console"},
		{level: "warn", format: "json"},
		{level: "error", format: "console"},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger, err := New(tt.level, tt.format)
			require.NoError(t, err)
			require.NotNil(t, logger)

			lvl, err := zapcore.ParseLevel(tt.level)
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(lvl))
			if lvl > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(lvl-1))
			}
		})
	}
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New("verbose", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing log level")
}
