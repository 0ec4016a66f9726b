package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/tools"
)

// ToolCall is a provider's native request to run one tool. Args is the raw
// JSON argument payload.
type ToolCall struct {
	Name string
	Args string
}

// Reply is a single provider response. When ToolCall is set the model asked
// for a tool; otherwise Text is its answer.
type Reply struct {
	Text     string
	ToolCall *ToolCall
}

// LLMClient is the interface for interacting with a Large Language Model.
type LLMClient interface {
	Chat(ctx context.Context, messages []conversation.Message, availableTools []tools.Tool) (*Reply, error)
}

// VisionClient is implemented by clients that can describe images.
type VisionClient interface {
	SupportsVision() bool
	// DescribeImage sends system, probe and the image (a data URL) in one
	// stateless request and returns the model's text.
	DescribeImage(ctx context.Context, system, probe, dataURL string) (string, error)
}

// NewClient builds the client named by cfg.LLMClient.
func NewClient(ctx context.Context, cfg *config.Config) (LLMClient, error) {
	switch strings.ToLower(cfg.LLMClient) {
	case "openai", "openrouter":
		return NewOpenAILLMClient(ctx, cfg.Model, cfg.BaseURL, cfg.Vision)
	case "anthropic":
		return NewAnthropicLLMClient(ctx, cfg.Model)
	case "gemini":
		return NewGeminiLLMClient(ctx, cfg.Model)
	case "bedrock":
		return NewBedrockLLMClient(ctx, cfg.Model)
	case "mock", "":
		return &MockLLMClient{}, nil
	default:
		return nil, errors.New("unsupported LLM client: %s", cfg.LLMClient)
	}
}

// MockLLMClient answers without calling any provider. It echoes the last
// message so the full loop can be exercised offline.
type MockLLMClient struct{}

func (m *MockLLMClient) Chat(ctx context.Context, messages []conversation.Message, availableTools []tools.Tool) (*Reply, error) {
	if len(messages) == 0 {
		return &Reply{Text: "I am a mock LLM. There is nothing to answer."}, nil
	}
	last := messages[len(messages)-1].Content
	return &Reply{
		Text: fmt.Sprintf("I am a mock LLM. You said: '%s'. Available tools: %s.",
			last, strings.Join(tools.Names(availableTools), ", ")),
	}, nil
}

// mergeConsecutive folds adjacent messages with the same role into one, for
// providers that require strictly alternating turns.
func mergeConsecutive(messages []conversation.Message) []conversation.Message {
	var out []conversation.Message
	for _, m := range messages {
		if n := len(out); n > 0 && out[n-1].Role == m.Role {
			out[n-1].Content += "\n\n" + m.Content
			continue
		}
		out = append(out, m)
	}
	return out
}

// splitSystem separates the system prompt from the chat turns.
func splitSystem(messages []conversation.Message) (string, []conversation.Message) {
	var system []string
	var rest []conversation.Message
	for _, m := range messages {
		if m.Role == conversation.RoleSystem {
			system = append(system, m.Content)
			continue
		}
		rest = append(rest, m)
	}
	return strings.Join(system, "\n\n"), rest
}
