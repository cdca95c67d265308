package slogx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSONOutput(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var buf bytes.Buffer
	logger := New(Config{Service: "roster", Version: "test", Env: "prod", Level: "warn", Format: "json", Output: &buf})

	logger.Info("dropped")
	logger.Warn("kept", "password", Secret("hunter2"))

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	require.Equal(t, "kept", rec["msg"])
	require.Equal(t, "roster", rec["service"])
	require.Equal(t, "[REDACTED]", rec["password"])
	require.NotContains(t, buf.String(), "hunter2")
	require.NotContains(t, buf.String(), "dropped")
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		require.Equal(t, want, ParseLevel(in), in)
	}
}

func TestContextLogger(t *testing.T) {
	require.Equal(t, slog.Default(), FromContext(context.Background()))

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := WithActor(WithContext(context.Background(), base), "alice")

	FromContext(ctx).Info("hello")
	require.Contains(t, buf.String(), "actor=alice")
}
