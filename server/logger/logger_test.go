package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	defer level.SetLevel(zapcore.DebugLevel)

	assert.NoError(t, SetLevel(""))
	assert.Equal(t, zapcore.DebugLevel, level.Level())

	assert.NoError(t, SetLevel("warn"))
	assert.Equal(t, zapcore.WarnLevel, level.Level())
	assert.False(t, NewLogger().Desugar().Core().Enabled(zapcore.InfoLevel))

	assert.Error(t, SetLevel("loud"))
}
