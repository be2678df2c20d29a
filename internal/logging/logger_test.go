package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level   string
		verbose bool
		want    zapcore.Level
	}{
		{"", false, zapcore.InfoLevel},
		{"warn", false, zapcore.WarnLevel},
		{"warn", true, zapcore.DebugLevel},
		{"DEBUG", false, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		logger, err := New(tt.level, tt.verbose)
		require.NoError(t, err)
		assert.True(t, logger.Core().Enabled(tt.want), "level %q verbose=%v", tt.level, tt.verbose)
		if tt.want > zapcore.DebugLevel {
			assert.False(t, logger.Core().Enabled(tt.want-1))
		}
	}

	_, err := New("loud", false)
	assert.Error(t, err)
}
