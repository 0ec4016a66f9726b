package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m4xw311/pengy/agent"
	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/profile"
	"github.com/m4xw311/pengy/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stageExecutor answers with a fixed text, or fails every call when err is set.
type stageExecutor struct {
	answer string
	err    error
	seeds  []string
}

func (s *stageExecutor) Complete(ctx context.Context, msgs []conversation.Message, available []tools.Tool) ([]conversation.Message, error) {
	s.seeds = append(s.seeds, msgs[1].Content)
	if s.err != nil {
		return nil, s.err
	}
	return append(msgs, conversation.FinalAnswerMessage(s.answer)), nil
}

func factoryFor(t *testing.T, execs map[string]*stageExecutor) Factory {
	t.Helper()
	return func(name string) (*agent.Agent, error) {
		exec, ok := execs[name]
		if !ok {
			return nil, fmt.Errorf("no executor for %s", name)
		}
		return agent.New(exec, nil, name+" system", agent.WithBackoff(func(int) time.Duration { return 0 })), nil
	}
}

func thinking(events []agent.Event) []string {
	var out []string
	for _, e := range events {
		if e.Kind == agent.EventThinking {
			out = append(out, e.Text)
		}
	}
	return out
}

func TestRunAllStagesSucceed(t *testing.T) {
	execs := map[string]*stageExecutor{
		profile.Researcher: {answer: "R"},
		profile.Coder:      {answer: "I"},
		profile.Tester:     {answer: "T"},
	}
	rec := &agent.Recorder{}
	report := New(factoryFor(t, execs)).Run(context.Background(), "add caching", rec)

	assert.Equal(t, Report("R", "I", "T"), report)
	assert.Equal(t, "=== PENGY AGENT: Complete Workflow Summary ===\n\nPHASE 1 - RESEARCH:\nR\n\nPHASE 2 - IMPLEMENTATION:\nI\n\nPHASE 3 - TESTING:\nT\n\n=== Workflow Complete ===", report)

	assert.Equal(t, []string{
		"=== PENGY AGENT: Starting Orchestration ===",
		"=== PHASE 1: Code Research ===",
		"Research Report Generated:\nR",
		"=== PHASE 2: Code Implementation ===",
		"Implementation Summary:\nI",
		"=== PHASE 3: Testing ===",
		"Test Results:\nT",
	}, thinking(rec.Events()))

	// Each stage's answer feeds the next seed.
	require.Len(t, execs[profile.Coder].seeds, 1)
	assert.Contains(t, execs[profile.Coder].seeds[0], "Research report:\nR\n")
	assert.Contains(t, execs[profile.Tester].seeds[0], "Implementation summary:\nI\n")
	assert.Contains(t, execs[profile.Researcher].seeds[0], "add caching")
}

func TestRunStageFailingEveryAttempt(t *testing.T) {
	execs := map[string]*stageExecutor{
		profile.Researcher: {err: fmt.Errorf("provider down")},
		profile.Coder:      {answer: "I"},
		profile.Tester:     {answer: "T"},
	}
	rec := &agent.Recorder{}
	report := New(factoryFor(t, execs)).Run(context.Background(), "req", rec)

	assert.Equal(t, Report(ResearchPlaceholder, "I", "T"), report)
	assert.Len(t, execs[profile.Researcher].seeds, 3)
	assert.Contains(t, execs[profile.Coder].seeds[0], ResearchPlaceholder)
	assert.Contains(t, rec.Events(), agent.ErrorEvent("Failed to complete after retries"))
}

func TestRunFactoryFailure(t *testing.T) {
	execs := map[string]*stageExecutor{
		profile.Researcher: {answer: "R"},
		profile.Tester:     {answer: "T"},
	}
	rec := &agent.Recorder{}
	report := New(factoryFor(t, execs)).Run(context.Background(), "req", rec)

	assert.Equal(t, Report("R", ImplementationPlaceholder, "T"), report)
	found := false
	for _, e := range rec.Events() {
		if e.Kind == agent.EventError && strings.HasPrefix(e.Text, "Failed to start coder agent") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRunStageWithoutFinalAnswer(t *testing.T) {
	looping := func(name string) (*agent.Agent, error) {
		if name != profile.Tester {
			return agent.New(&stageExecutor{answer: name}, nil, "s"), nil
		}
		exec := executorFunc(func(msgs []conversation.Message) []conversation.Message {
			return append(msgs, conversation.ToolCallMessage("think", "{}"), conversation.ToolResultMessage("THOUGHT_LOG: ..."))
		})
		return agent.New(exec, nil, "s", agent.WithMaxStep(2)), nil
	}

	report := New(looping).Run(context.Background(), "req", nil)
	assert.Equal(t, Report(profile.Researcher, profile.Coder, TestingPlaceholder), report)
}

func TestRunCancelled(t *testing.T) {
	execs := map[string]*stageExecutor{
		profile.Researcher: {answer: "R"},
		profile.Coder:      {answer: "I"},
		profile.Tester:     {answer: "T"},
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := New(factoryFor(t, execs)).Run(ctx, "req", nil)
	assert.Equal(t, Report(ResearchPlaceholder, ImplementationPlaceholder, TestingPlaceholder), report)
	assert.Empty(t, execs[profile.Researcher].seeds)
}

func TestWithHistory(t *testing.T) {
	execs := map[string]*stageExecutor{
		profile.Researcher: {answer: "R"},
		profile.Coder:      {answer: "I"},
		profile.Tester:     {answer: "T"},
	}
	New(factoryFor(t, execs), WithHistory("User: earlier")).Run(context.Background(), "req", nil)
	for name, exec := range execs {
		assert.True(t, strings.HasSuffix(exec.seeds[0], "\nUser: earlier"), name)
	}
}

type executorFunc func(msgs []conversation.Message) []conversation.Message

func (f executorFunc) Complete(ctx context.Context, msgs []conversation.Message, available []tools.Tool) ([]conversation.Message, error) {
	return f(msgs), nil
}
