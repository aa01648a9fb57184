package rlog

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandlerRendersDiagnosticLine(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, "rsync", LogLevelInfo))

	SetDefault(logger)
	Errorf(Fields{Role: "sender", Version: 31}, 12, "bad frame")

	got := buf.String()
	require.Equal(t, "rsync ERROR: bad frame (code 12) [sender=31]\n", got)
}

func TestHandlerGatesBelowMinLevel(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, "rsync", LogLevelWarning)
	require.False(t, h.Enabled(nil, slog.LevelInfo))
	require.True(t, h.Enabled(nil, slog.LevelWarn))
}

func TestLogLevelSetAcceptsNameOrNumber(t *testing.T) {
	var l LogLevel
	require.NoError(t, l.Set("warning"))
	require.Equal(t, LogLevelWarning, l)

	require.NoError(t, l.Set("2"))
	require.Equal(t, LogLevelCritical, l)

	require.Error(t, l.Set("not-a-level"))
}
