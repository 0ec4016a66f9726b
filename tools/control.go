package tools

import (
	"context"
	"strings"

	"github.com/m4xw311/pengy/errors"
)

// Markers returned by the control tools. SummarizeMarker is acted on by the
// agent loop; the others are informational.
const (
	SummarizeMarker = "SUMMARIZE_CONVERSATION"
	EndMarker       = "END_CONVERSATION"
	ThoughtPrefix   = "THOUGHT_LOG: "
)

type ThinkTool struct{ base }

func NewThinkTool() *ThinkTool {
	return &ThinkTool{base{def: Definition{
		Name:        "think",
		Description: "Use the tool to think about something. It will not obtain new information or change anything, but just append the thought to the log. Use it when complex reasoning or some cache memory is needed.",
		Parameters: []Parameter{
			{Name: "thought", Type: "string", Description: "A thought to think about."},
		},
		Required: []string{"thought"},
	}}}
}

func (t *ThinkTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Thought string `json:"thought"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if in.Thought == "" {
		return "", errors.Errorf(errors.KindExecution, "Missing required parameter: thought")
	}
	return ThoughtPrefix + in.Thought, nil
}

type EndTool struct{ base }

func NewEndTool() *EndTool {
	return &EndTool{base{def: Definition{
		Name:        "end",
		Description: "End the current agent run. Provide an optional 'reason' to include in the final message.",
		Parameters: []Parameter{
			{Name: "reason", Type: "string", Description: "Optional reason for ending."},
		},
	}}}
}

func (t *EndTool) Execute(ctx context.Context, args string) (string, error) {
	var in struct {
		Reason string `json:"reason"`
	}
	if err := DecodeArgs(args, &in); err != nil {
		return "", err
	}
	if reason := strings.TrimSpace(in.Reason); reason != "" {
		return EndMarker + ": " + reason, nil
	}
	return EndMarker, nil
}

type SummarizerTool struct{ base }

func NewSummarizerTool() *SummarizerTool {
	return &SummarizerTool{base{def: Definition{
		Name:        "summarizer",
		Description: "Summarize the previous conversation to avoid context explosion. Takes no parameters. Call it when the conversation becomes too long; all previous messages are summarized while the last user message is kept intact.",
	}}}
}

func (t *SummarizerTool) Execute(ctx context.Context, args string) (string, error) {
	return SummarizeMarker, nil
}
