package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, level)

	level, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewLogger_FileGetsDebugConsoleFiltered(t *testing.T) {
	var console, file bytes.Buffer
	logger := newLogger(zapcore.AddSync(&console), zapcore.AddSync(&file), zapcore.InfoLevel)

	logger.Debug("Ranking program", zap.String("program", "TKJ"))
	logger.Info("Ranking complete", zap.Int("applicants", 3))
	require.NoError(t, logger.Sync())

	assert.NotContains(t, console.String(), "Ranking program")
	assert.Contains(t, console.String(), "Ranking complete")

	lines := strings.Split(strings.TrimSpace(file.String()), "\n")
	require.Len(t, lines, 2)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Ranking program", entry["msg"])
	assert.Equal(t, "TKJ", entry["program"])
	assert.Contains(t, entry, "timestamp")
}
