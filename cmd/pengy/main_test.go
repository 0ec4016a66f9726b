package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI in an isolated home and working directory.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.Execute()
	return out.String(), err
}

func TestToolsListsBuiltins(t *testing.T) {
	out, err := execute(t, "", "tools")
	require.NoError(t, err)
	for _, name := range []string{"bash", "read_file", "write_file", "summarizer", "vision_judge"} {
		assert.Contains(t, out, name)
	}
}

func TestToolsForProfile(t *testing.T) {
	out, err := execute(t, "", "tools", "--profile", "simple")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "bash"))
	assert.True(t, strings.HasPrefix(lines[1], "end"))

	_, err = execute(t, "", "tools", "--profile", "nope")
	assert.ErrorContains(t, err, "unknown profile 'nope'")
}

func TestRunOnceWithMockModel(t *testing.T) {
	out, err := execute(t, "", "run", "--once", "-v", "none", "hello", "there")
	require.NoError(t, err)
	assert.Contains(t, out, "Pengy: I am a mock LLM. You said: 'hello there'.")
}

func TestRunOnceNeedsPrompt(t *testing.T) {
	_, err := execute(t, "", "run", "--once")
	assert.ErrorContains(t, err, "--once needs a prompt")
}

func TestRunInteractive(t *testing.T) {
	out, err := execute(t, "second\n/exit\n", "run", "-p", "chat", "first")
	require.NoError(t, err)
	assert.Contains(t, out, "Pengy (chat) is ready.")
	assert.Contains(t, out, "You said: 'first'")
	assert.Contains(t, out, "You said: 'second'")
}

func TestRunRejectsBadVerbosity(t *testing.T) {
	_, err := execute(t, "", "run", "--once", "-v", "loud", "hi")
	assert.ErrorContains(t, err, "invalid verbosity")
}

func TestPipelineWithMockModel(t *testing.T) {
	out, err := execute(t, "", "pipeline", "-v", "none", "add", "caching")
	require.NoError(t, err)
	assert.Contains(t, out, "=== PHASE 1: Code Research ===")
	assert.Contains(t, out, "PHASE 3 - TESTING:")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "=== Workflow Complete ==="))
}

func TestInitWritesProjectConfig(t *testing.T) {
	out, err := execute(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(".pengy", "config.yaml"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(wd, ".pengy", "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "llm: mock")

	root := newRootCmd()
	root.SetArgs([]string{"init"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.ErrorContains(t, root.Execute(), "already exists")
}

func TestDisplayAddr(t *testing.T) {
	assert.Equal(t, "localhost:8080", displayAddr(":8080"))
	assert.Equal(t, "0.0.0.0:9000", displayAddr("0.0.0.0:9000"))
}
