package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "failed to parse log output")
	return entry
}

func TestDispatcherLogger_Debug(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("command handled", "command", ":FIRE:", "entity", 42)

	entry := decode(t, &buf)
	assert.Equal(t, "debug", entry["level"])
	assert.Equal(t, "command handled", entry["message"])
	assert.Equal(t, ":FIRE:", entry["command"])
	assert.Equal(t, float64(42), entry["entity"]) // JSON numbers are float64
}

func TestDispatcherLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("match started", "name", "duel")

	entry := decode(t, &buf)
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "duel", entry["name"])
}

func TestDispatcherLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.ErrorLevel))

	dl.Info("filtered")
	assert.Empty(t, buf.String())

	dl.Error("handler failed", "code", 500, "reason", "unknown entity")

	entry := decode(t, &buf)
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, float64(500), entry["code"])
	assert.Equal(t, "unknown entity", entry["reason"])
}

func TestDispatcherLogger_OddKeyValues(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Info("odd", "key", "value", 7, "v", "dangling")

	entry := decode(t, &buf)
	assert.Equal(t, "value", entry["key"])
	assert.NotContains(t, entry, "dangling")
}

func TestDispatcherLogger_TypedValues(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf))

	dl.Error("queue stalled", "error", errors.New("full"), "waited", 1500*time.Millisecond)

	entry := decode(t, &buf)
	assert.Equal(t, "full", entry["error"])
	assert.Equal(t, float64(1500), entry["waited"]) // zerolog renders durations in ms
}

func TestDispatcherLogger_DebugIsSampled(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	for range 50 {
		dl.Debug("tick")
	}
	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	assert.Less(t, lines, 50)
	assert.GreaterOrEqual(t, lines, 5)
}
