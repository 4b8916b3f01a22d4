package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/chazu/spool/pkg/config"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.Log
		debug bool
	}{
		{"json info", config.Log{Level: "info", Format: config.FormatJSON}, false},
		{"console debug", config.Log{Level: "debug", Format: config.FormatConsole}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.debug, l.Core().Enabled(zapcore.DebugLevel))
			assert.True(t, l.Core().Enabled(zapcore.InfoLevel))
		})
	}
}

func TestNewBadLevel(t *testing.T) {
	_, err := New(config.Log{Level: "chatty"})
	assert.Error(t, err)
}
