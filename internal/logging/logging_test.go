package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Goraved/aqareport/internal/config"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"debug", zapcore.Level(-2)},
		{"DEBUG", zapcore.Level(-2)},
		{"info", zap.InfoLevel},
		{"warn", zap.WarnLevel},
		{"error", zap.ErrorLevel},
		{"", zap.InfoLevel},
	}
	for _, tt := range tests {
		if got := Level(tt.in); got != tt.want {
			t.Errorf("Level(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewZap(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			z, err := NewZap(config.LoggingConfig{Level: "warn", Format: format})
			require.NoError(t, err)
			assert.False(t, z.Core().Enabled(zap.InfoLevel))
			assert.True(t, z.Core().Enabled(zap.WarnLevel))
		})
	}
}

func TestNew_VerbosityFollowsLevel(t *testing.T) {
	log, flush, err := New(config.LoggingConfig{Level: "debug", Format: "json"})
	require.NoError(t, err)
	defer flush()
	assert.True(t, log.V(1).Enabled())
	assert.True(t, log.V(2).Enabled())

	log, flush2, err := New(config.LoggingConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	defer flush2()
	assert.True(t, log.Enabled())
	assert.False(t, log.V(1).Enabled())
}
