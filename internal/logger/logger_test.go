package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger(t *testing.T) {
	testCases := []struct {
		name        string
		level       string
		format      string
		expectError bool
	}{
		{name: "Json", level: "info", format: "json"},
		{name: "Console", level: "debug", format: "console"},
		{name: "Invalid level", level: "loud", format: "json", expectError: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			l, err := NewLogger(tc.level, tc.format)
			if tc.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "invalid log level")
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}

	l, err := NewLogger("warn", "json")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestForWallet(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)

	ForWallet(zap.New(core), "w1").Info("cycle")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "w1", logs.All()[0].ContextMap()[KeyWallet])
}
