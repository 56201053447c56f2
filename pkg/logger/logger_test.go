package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useBuffer(t *testing.T, cfg Config) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := globalLogger
	globalLogger = New(buf, cfg)
	t.Cleanup(func() { globalLogger = prev })
	return buf
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestInfo_InjectsContextIDs(t *testing.T) {
	buf := useBuffer(t, Config{Level: "info", Format: "json"})

	ctx := WithRequestID(WithTraceID(context.Background(), "t-1"), "r-1")
	Info(ctx, "pulled rows", "rows", 3)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "pulled rows", entry["msg"])
	assert.Equal(t, "t-1", entry["trace_id"])
	assert.Equal(t, "r-1", entry["request_id"])
	assert.EqualValues(t, 3, entry["rows"])
}

func TestDebug_FilteredByLevel(t *testing.T) {
	buf := useBuffer(t, Config{Level: "warn", Format: "text"})

	Debug(context.Background(), "hidden")
	Info(context.Background(), "hidden too")
	assert.Empty(t, buf.String())

	Warn(context.Background(), "shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestLogDuration(t *testing.T) {
	buf := useBuffer(t, Config{Level: "info", Format: "json"})

	done := LogDuration(context.Background(), "Pulling calendar_list from DB", "gvkeyx", "000003")
	done()

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Pulling calendar_list from DB", entry["msg"])
	assert.Equal(t, "000003", entry["gvkeyx"])
	assert.Contains(t, entry, "duration")
}
