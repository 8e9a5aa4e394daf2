package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithUser_AttachesUserKeyField(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	WithUser("u1").Info("Stream opened", "remote_ip", "10.0.0.1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "u1", entry["user_key"])
	assert.Equal(t, "Stream opened", entry["msg"])
	assert.Equal(t, "10.0.0.1", entry["remote_ip"])
}

func TestInitLogger_DebugLevelEnablesDebug(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.Background()
	InitLogger("debug", "json")
	assert.True(t, slog.Default().Enabled(ctx, slog.LevelDebug))

	InitLogger("warn", "text")
	assert.False(t, slog.Default().Enabled(ctx, slog.LevelInfo))
}
