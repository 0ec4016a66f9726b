package acp

import (
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pipeWriter struct{ w *io.PipeWriter }

func newPipe() (*io.PipeReader, pipeWriter) {
	r, w := io.Pipe()
	return r, pipeWriter{w}
}

func (p pipeWriter) line(s string) { _, _ = io.WriteString(p.w, s+"\n") }

func (p pipeWriter) close() { _ = p.w.Close() }

// syncBuffer collects server output written from several goroutines.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) messages(t *testing.T) []map[string]any {
	t.Helper()
	b.mu.Lock()
	text := b.buf.String()
	b.mu.Unlock()

	var msgs []map[string]any
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		msgs = append(msgs, m)
	}
	return msgs
}

// waitResult blocks until the response with the given id arrives and returns
// its result object.
func (b *syncBuffer) waitResult(t *testing.T, id float64) map[string]any {
	t.Helper()
	var resp map[string]any
	require.Eventually(t, func() bool {
		resp = responseFor(b.messages(t), id)
		return resp != nil
	}, 5*time.Second, 5*time.Millisecond)
	result, _ := resp["result"].(map[string]any)
	return result
}
