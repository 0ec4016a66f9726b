package agent

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueSinkPreservesOrder(t *testing.T) {
	q := NewQueueSink()
	const n = 1000

	go func() {
		defer q.Close()
		for i := 1; i <= n; i++ {
			q.Emit(StepEvent(i, n))
		}
	}()

	// Let the producer get ahead of the consumer.
	time.Sleep(10 * time.Millisecond)

	got := 0
	for e := range q.Events() {
		got++
		require.Equal(t, got, e.Step)
	}
	assert.Equal(t, n, got)
}

func TestQueueSinkDoesNotBlockProducer(t *testing.T) {
	q := NewQueueSink()
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			q.Emit(ThinkingEvent("x"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("producer blocked on an idle consumer")
	}
	q.Close()
	q.Close()

	count := 0
	for range q.Events() {
		count++
	}
	assert.Equal(t, 100, count)
}

func TestQueueSinkDropsAfterClose(t *testing.T) {
	q := NewQueueSink()
	q.Emit(ThinkingEvent("kept"))
	q.Close()
	assert.NotPanics(t, func() { q.Emit(ThinkingEvent("late")) })

	var texts []string
	for e := range q.Events() {
		texts = append(texts, e.Text)
	}
	assert.Equal(t, []string{"kept"}, texts)
}

func TestQueueSinkWithRun(t *testing.T) {
	exec := &stubExecutor{steps: []stepFunc{
		toolStep("think", `{"thought":"a"}`, "THOUGHT_LOG: a"),
		answer("done"),
	}}
	a := New(exec, nil, "system")
	q := NewQueueSink()

	go func() {
		defer q.Close()
		a.Run(context.Background(), "go", q)
	}()

	var kinds []EventKind
	for e := range q.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []EventKind{EventStep, EventToolCall, EventToolResult, EventStep, EventFinalResponse}, kinds)
}

func TestTee(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	s := Tee(a, b, Discard)
	s.Emit(ErrorEvent("x"))
	s.Emit(FinalResponseEvent("y"))

	assert.Equal(t, a.Events(), b.Events())
	assert.Len(t, a.Events(), 2)
}

func TestEventString(t *testing.T) {
	tests := []struct {
		event Event
		want  string
	}{
		{StepEvent(2, 10), "Step 2/10"},
		{ToolCallEvent("bash", `{"cmd":"ls"}`), `Tool call: bash({"cmd":"ls"})`},
		{ToolResultEvent("ok"), "Tool result: ok"},
		{ErrorEvent("boom"), "Error: boom"},
		{VisionEvent("Image analyzed"), "Vision: Image analyzed"},
		{FinalResponseEvent("bye"), "bye"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.event.String())
	}
	assert.Equal(t, "tool_result", EventToolResult.String())
}

func TestEventJSONUsesKindNames(t *testing.T) {
	data, err := json.Marshal(ToolCallEvent("grep", `{"pattern":"x"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"tool_call","name":"grep","args":"{\"pattern\":\"x\"}"}`, string(data))

	var e Event
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"vision_analysis","text":"Image analyzed"}`), &e))
	assert.Equal(t, VisionEvent("Image analyzed"), e)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"nope"}`), &e))
}
