package tools

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTodoLifecycle(t *testing.T) {
	ws := newTestWorkspace(t)
	tool := NewTodoTool(ws)
	ctx := context.Background()

	out, err := tool.Execute(ctx, `{"action":"read"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Todo list is empty")

	out, err = tool.Execute(ctx, `{"action":"modify","operation":"insert","task_description":"write tests"}`)
	require.NoError(t, err)
	assert.Equal(t, "Task added to the end of the list (position 0).", out)

	out, err = tool.Execute(ctx, `{"action":"modify","operation":"insert","task_description":"read code","position":0}`)
	require.NoError(t, err)
	assert.Equal(t, "Task inserted at position 0.", out)

	out, err = tool.Execute(ctx, `{"action":"modify","operation":"tick","task_id":"0"}`)
	require.NoError(t, err)
	assert.Equal(t, "Task 0 marked as completed.", out)

	out, err = tool.Execute(ctx, `{"action":"read"}`)
	require.NoError(t, err)
	assert.Equal(t, "Current todo list:\n0. [x] read code\n1. [ ] write tests\n\nSummary: 1 of 2 tasks completed.", out)

	data, err := os.ReadFile(ws.TodoPath())
	require.NoError(t, err)
	var stored []TodoTask
	require.NoError(t, json.Unmarshal(data, &stored))
	assert.Equal(t, []TodoTask{{"read code", true}, {"write tests", false}}, stored)

	out, err = tool.Execute(ctx, `{"action":"modify","operation":"delete","task_id":1}`)
	require.NoError(t, err)
	assert.Equal(t, "Task 1 deleted: 'write tests'", out)
}

func TestTodoBatchIsAtomic(t *testing.T) {
	tool := NewTodoTool(newTestWorkspace(t))
	ctx := context.Background()

	out, err := tool.Execute(ctx, `{"action":"modify","operations":[
		{"operation":"insert","task_description":"a"},
		{"operation":"insert","task_description":"b"},
		{"operation":"tick","task_id":1}
	]}`)
	require.NoError(t, err)
	assert.Contains(t, out, "Applied 3 operations:")

	_, err = tool.Execute(ctx, `{"action":"modify","operations":[
		{"operation":"delete","task_id":0},
		{"operation":"tick","task_id":9}
	]}`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Operation 1 failed")

	out, err = tool.Execute(ctx, `{"action":"read"}`)
	require.NoError(t, err)
	assert.Contains(t, out, "0. [ ] a")
	assert.Contains(t, out, "1. [x] b")
}

func TestTodoErrors(t *testing.T) {
	tool := NewTodoTool(newTestWorkspace(t))
	ctx := context.Background()
	for _, args := range []string{
		`{}`,
		`{"action":"list"}`,
		`{"action":"modify"}`,
		`{"action":"modify","operation":"rename"}`,
		`{"action":"modify","operation":"tick"}`,
		`{"action":"modify","operation":"insert"}`,
		`{"action":"modify","operation":"insert","task_description":"x","position":5}`,
		`{"action":"modify","operations":[]}`,
	} {
		_, err := tool.Execute(ctx, args)
		assert.Error(t, err, args)
	}
}
