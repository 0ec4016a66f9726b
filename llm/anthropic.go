package llm

import (
	"context"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/tools"
)

const anthropicMaxTokens = 4096

// AnthropicLLMClient is a client for the Anthropic API.
type AnthropicLLMClient struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicLLMClient creates a new AnthropicLLMClient.
// It requires the ANTHROPIC_API_KEY environment variable to be set.
func NewAnthropicLLMClient(ctx context.Context, modelName string) (*AnthropicLLMClient, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, errors.New("ANTHROPIC_API_KEY environment variable not set")
	}
	return newAnthropicClient(modelName, option.WithAPIKey(apiKey)), nil
}

func newAnthropicClient(modelName string, opts ...option.RequestOption) *AnthropicLLMClient {
	client := anthropic.NewClient(opts...)
	return &AnthropicLLMClient{client: &client, model: modelName}
}

// Chat sends a chat request to the Anthropic API.
func (a *AnthropicLLMClient) Chat(ctx context.Context, messages []conversation.Message, availableTools []tools.Tool) (*Reply, error) {
	anthropicMessages, systemPrompt := convertMessagesToAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages:  anthropicMessages,
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	for _, toolParam := range convertToolsToAnthropicTools(availableTools) {
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{OfTool: &toolParam})
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Anthropic")
	}
	return processAnthropicResponse(resp), nil
}

func (a *AnthropicLLMClient) SupportsVision() bool { return true }

func (a *AnthropicLLMClient) DescribeImage(ctx context.Context, system, probe, dataURL string) (string, error) {
	mediaType, data, err := parseDataURL(dataURL)
	if err != nil {
		return "", err
	}
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: anthropicMaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, data),
				anthropic.NewTextBlock(probe),
			),
		},
	}
	if system != "" {
		params.System = []anthropic.TextBlockParam{{Text: system}}
	}
	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", errors.Wrapf(err, "failed to send vision request to Anthropic")
	}
	return processAnthropicResponse(resp).Text, nil
}

// convertMessagesToAnthropicMessages converts the conversation to Anthropic's
// format. Turns must alternate, so adjacent messages of one role are merged.
func convertMessagesToAnthropicMessages(messages []conversation.Message) ([]anthropic.MessageParam, string) {
	systemPrompt, rest := splitSystem(messages)
	var anthropicMessages []anthropic.MessageParam
	for _, msg := range mergeConsecutive(rest) {
		block := anthropic.NewTextBlock(msg.Content)
		if msg.Role == conversation.RoleAssistant {
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(block))
		} else {
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(block))
		}
	}
	return anthropicMessages, systemPrompt
}

// convertToolsToAnthropicTools converts tool definitions to Anthropic's tool format.
func convertToolsToAnthropicTools(ts []tools.Tool) []anthropic.ToolParam {
	if len(ts) == 0 {
		return nil
	}
	anthropicTools := make([]anthropic.ToolParam, 0, len(ts))
	for _, t := range ts {
		def := t.Definition()
		schema := def.JSONSchema()
		var required []string
		switch r := schema["required"].(type) {
		case []string:
			required = r
		case []any:
			for _, v := range r {
				if s, ok := v.(string); ok {
					required = append(required, s)
				}
			}
		}
		anthropicTools = append(anthropicTools, anthropic.ToolParam{
			Name:        def.Name,
			Description: anthropic.String(def.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
				Required:   required,
			},
		})
	}
	return anthropicTools
}

// processAnthropicResponse converts an Anthropic API response into a Reply.
func processAnthropicResponse(resp *anthropic.Message) *Reply {
	reply := &Reply{}
	var text strings.Builder
	for _, content := range resp.Content {
		switch c := content.AsAny().(type) {
		case anthropic.TextBlock:
			text.WriteString(c.Text)
		case anthropic.ToolUseBlock:
			if reply.ToolCall != nil {
				logger.Warn("model requested several tool calls, running the first", "skipped", c.Name)
				continue
			}
			reply.ToolCall = &ToolCall{Name: c.Name, Args: string(c.Input)}
		}
	}
	reply.Text = text.String()
	return reply
}

// parseDataURL splits "data:<mime>;base64,<data>".
func parseDataURL(dataURL string) (mediaType, data string, err error) {
	rest, ok := strings.CutPrefix(dataURL, "data:")
	if !ok {
		return "", "", errors.New("not a data URL")
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok || !strings.HasSuffix(meta, ";base64") {
		return "", "", errors.New("data URL is not base64 encoded")
	}
	return strings.TrimSuffix(meta, ";base64"), data, nil
}
