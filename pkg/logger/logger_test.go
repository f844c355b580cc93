package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestLogger_Log_Levels(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)

	tests := []struct {
		level string
		want  string
	}{
		{LevelDebug, "debug"},
		{LevelInfo, "info"},
		{LevelWarn, "warn"},
		{LevelError, "error"},
		{"verbose", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := New(&buf)

			l.Log(tt.level, "pickup code generated", map[string]interface{}{
				"order_id": "ORD-1",
			})

			entry := decodeLine(t, &buf)
			assert.Equal(t, tt.want, entry["level"])
			assert.Equal(t, "pickup code generated", entry["message"])
			assert.Equal(t, "ORD-1", entry["order_id"])
			assert.Contains(t, entry["caller"], "logger_test.go")
		})
	}
}

func TestLogger_Error_IncludesCause(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Error("failed to persist code", errors.New("connection reset"), map[string]interface{}{
		"store_id": "store-1",
	})

	entry := decodeLine(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "connection reset", entry["error"])
	assert.Equal(t, "store-1", entry["store_id"])
}

func TestLogger_WithContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf).WithContext(map[string]interface{}{"request_id": "req-7"})

	l.Info("request handled")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "req-7", entry["request_id"])
}
