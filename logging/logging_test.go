package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"todolist/config"
)

func TestParseLevel(t *testing.T) {
	level, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, level)

	level, err = ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, zapcore.DebugLevel, level)

	_, err = ParseLevel("loud")
	assert.ErrorContains(t, err, `invalid log level "loud"`)
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("json", zapcore.InfoLevel, &buf)

	logger.Debug("hidden")
	logger.Info("saved", zap.String("id", "abc"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "saved", entry["msg"])
	assert.Equal(t, "abc", entry["id"])
	assert.Equal(t, "todolist", entry["logger"])
	assert.Contains(t, entry, "ts")
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("console", zapcore.WarnLevel, &buf)

	logger.Warn("refresh failed")
	assert.Contains(t, buf.String(), "WARN")
	assert.Contains(t, buf.String(), "refresh failed")
}

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "todolist.log")
	logger, closeFn, err := New(config.Log{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("hello")
	require.NoError(t, closeFn())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestNewRejectsBadLevel(t *testing.T) {
	_, _, err := New(config.Log{Level: "chatty"})
	assert.Error(t, err)
}
