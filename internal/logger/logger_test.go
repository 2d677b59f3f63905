package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, level string) *bytes.Buffer {
	t.Helper()
	prev := Get()
	t.Cleanup(func() { Use(prev) })

	var buf bytes.Buffer
	Use(New(&buf, level, "json"))
	return &buf
}

func lines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		out = append(out, m)
	}
	return out
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestTrace_ErrorRaisesLevel(t *testing.T) {
	buf := capture(t, "debug")

	DatabaseCall("UPDATE", "user_bonus_malus", "userID", "u1")
	DatabaseResult("UPDATE", 0, errors.New("connection reset"), "userID", "u1")
	ExitMethod("Quote")

	got := lines(t, buf)
	require.Len(t, got, 3)

	assert.Equal(t, "DEBUG", got[0]["level"])
	assert.Equal(t, "user_bonus_malus", got[0]["table"])

	assert.Equal(t, "ERROR", got[1]["level"])
	assert.Equal(t, "← store failed", got[1]["msg"])
	assert.Equal(t, "connection reset", got[1]["error"])
	assert.Equal(t, "u1", got[1]["userID"])

	assert.Equal(t, "Quote", got[2]["method"])
}

func TestTrace_HiddenAboveDebug(t *testing.T) {
	buf := capture(t, "info")

	EnterMethod("Quote")
	ExternalServiceResult("redis", "GET", nil)
	ExternalServiceResult("redis", "GET", errors.New("timeout"))

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "redis", got[0]["service"])
	assert.Equal(t, "timeout", got[0]["error"])
}

func TestWithPair(t *testing.T) {
	buf := capture(t, "info")

	WithPair("usd", "ars").Info("FX snapshot replaced")

	got := lines(t, buf)
	require.Len(t, got, 1)
	assert.Equal(t, "USD/ARS", got[0]["pair"])
}
