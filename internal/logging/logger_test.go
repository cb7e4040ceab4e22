package logging

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestNewWithWriter_AddsAppAttribute(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, "driveq", "warn")

	logger.Info("hidden")
	logger.Warn("queue stalled", "queue", "FILE_QUEUE")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "app=driveq")
	assert.Contains(t, out, "queue=FILE_QUEUE")
}
