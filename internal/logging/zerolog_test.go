package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "failed to parse log output")
	return entry
}

func TestZerologAdapter_Levels(t *testing.T) {
	tests := []struct {
		level string
		log   func(l *ZerologAdapter)
	}{
		{"debug", func(l *ZerologAdapter) { l.Debug("msg", "key1", "value1", "key2", 42) }},
		{"info", func(l *ZerologAdapter) { l.Info("msg", "key1", "value1", "key2", 42) }},
		{"warn", func(l *ZerologAdapter) { l.Warn("msg", "key1", "value1", "key2", 42) }},
		{"error", func(l *ZerologAdapter) { l.Error("msg", "key1", "value1", "key2", 42) }},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.DebugLevel))

			tt.log(l)

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.level, entry["level"])
			assert.Equal(t, "msg", entry["message"])
			assert.Equal(t, "value1", entry["key1"])
			assert.Equal(t, float64(42), entry["key2"]) // JSON numbers are float64
		})
	}
}

func TestZerologAdapter_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapter(zerolog.New(&buf).Level(zerolog.InfoLevel))

	l.Debug("hidden")
	assert.Empty(t, buf.String())
}

func TestZerologAdapter_NoKeyValues(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapter(zerolog.New(&buf))

	l.Info("simple message")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "simple message", entry["message"])
}

func TestToFields_SkipsNonStringKeysAndOddTail(t *testing.T) {
	fields := toFields([]any{"a", 1, 2, "b", "dangling"})
	assert.Equal(t, map[string]any{"a": 1}, fields)
}
