package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for _, level := range []string{"", "debug", "INFO", "warn", "error"} {
		t.Run(level, func(t *testing.T) {
			l, err := New(level)
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}

	l, err := New("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, l.Core().Enabled(zapcore.WarnLevel))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New("loud")
	assert.Error(t, err)

	_, err = NewDevelopment("loud")
	assert.Error(t, err)
}
