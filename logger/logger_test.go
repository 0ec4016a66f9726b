package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{"debug", LevelDebug, false},
		{"INFO", LevelInfo, false},
		{"", LevelInfo, false},
		{"warning", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New()
	l.SetOutput(&buf)
	l.SetLevel(LevelWarn)

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warn message", "step", 3)
	l.Error("error message")

	out := buf.String()
	assert.NotContains(t, out, "debug message")
	assert.NotContains(t, out, "info message")
	assert.Contains(t, out, "warn message")
	assert.Contains(t, out, "step=3")
	assert.Contains(t, out, "error message")
}

func TestOpenFileAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pengy.log")
	l := New()
	require.NoError(t, l.OpenFile(path))
	l.Info("to file", "tool", "bash")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "tool=bash")

	// closing twice is harmless and later writes are discarded
	require.NoError(t, l.Close())
	l.Info("dropped")
}

func TestDefaultDiscards(t *testing.T) {
	assert.NotPanics(t, func() {
		Info("nothing to see")
		sub := Default.With("k", "v")
		sub.Debug("still nothing")
	})
}

func TestDerivedLoggerFollowsOutput(t *testing.T) {
	l := New()
	sub := l.With("component", "agent")

	var buf bytes.Buffer
	l.SetOutput(&buf)
	sub.Info("step started", "step", 1)
	assert.Contains(t, buf.String(), "component=agent")
	assert.Contains(t, buf.String(), "step=1")
}
