package llm

import (
	"context"
	"log/slog"

	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/tools"
)

// Model performs one protocol step against an LLMClient: it asks the
// provider for its next move and returns the conversation extended by either
// a final answer or a single tool-call/tool-result pair.
type Model struct {
	client LLMClient
	log    *slog.Logger
}

func NewModel(client LLMClient) *Model {
	return &Model{client: client, log: logger.Default.With("component", "model")}
}

// Client returns the underlying provider client.
func (m *Model) Client() LLMClient { return m.client }

// SupportsVision reports whether the provider can summarize images.
func (m *Model) SupportsVision() bool {
	v, ok := m.client.(VisionClient)
	return ok && v.SupportsVision()
}

// DescribeImage delegates to the provider when it supports vision.
func (m *Model) DescribeImage(ctx context.Context, system, probe, dataURL string) (string, error) {
	v, ok := m.client.(VisionClient)
	if !ok || !v.SupportsVision() {
		return "", errors.Errorf(errors.KindVisionUnavailable, "vision not supported by the current model")
	}
	text, err := v.DescribeImage(ctx, system, probe, dataURL)
	if err != nil {
		return "", errors.Tag(errors.KindTransport, errors.Wrapf(err, "vision request failed"))
	}
	return text, nil
}

// Complete runs one step. Provider failures are returned as transport errors
// and leave the input untouched. Tool lookup and tool failures never fail the
// step; they become the result text.
func (m *Model) Complete(ctx context.Context, messages []conversation.Message, available []tools.Tool) ([]conversation.Message, error) {
	reply, err := m.client.Chat(ctx, messages, available)
	if err != nil {
		return nil, errors.Tag(errors.KindTransport, errors.Wrapf(err, "model request failed"))
	}
	if reply == nil {
		reply = &Reply{}
	}

	out := make([]conversation.Message, len(messages), len(messages)+2)
	copy(out, messages)

	var name, args string
	switch {
	case reply.ToolCall != nil:
		name, args = reply.ToolCall.Name, reply.ToolCall.Args
	case conversation.IsToolCallText(reply.Text):
		// The model wrote the call as text; run it so the pair stays complete.
		name, args, _ = conversation.ParseToolCallText(reply.Text)
	default:
		return append(out, conversation.FinalAnswerMessage(reply.Text)), nil
	}

	result := m.invoke(ctx, available, name, args)
	return append(out,
		conversation.ToolCallMessage(name, args),
		conversation.ToolResultMessage(result),
	), nil
}

func (m *Model) invoke(ctx context.Context, available []tools.Tool, name, args string) string {
	tool, ok := tools.Find(available, name)
	if !ok {
		m.log.Warn("unknown tool requested", "tool", name)
		return "Error: tool '" + name + "' not found. Available tools: " + joinNames(available)
	}
	result, err := tool.Execute(ctx, args)
	if err != nil {
		m.log.Debug("tool failed", "tool", name, "error", err)
		return "Error: " + err.Error()
	}
	m.log.Debug("tool succeeded", "tool", name, "bytes", len(result))
	return result
}

func joinNames(available []tools.Tool) string {
	names := tools.Names(available)
	if len(names) == 0 {
		return "none"
	}
	out := names[0]
	for _, n := range names[1:] {
		out += ", " + n
	}
	return out
}
