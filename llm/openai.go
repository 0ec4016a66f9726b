package llm

import (
	"context"
	"os"
	"strings"

	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/tools"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
)

const openRouterHost = "openrouter.ai"

// OpenAILLMClient is a client for OpenAI-compatible Chat Completion APIs,
// including OpenRouter.
type OpenAILLMClient struct {
	client  *openai.Client
	model   string
	baseURL string
	vision  bool
}

// NewOpenAILLMClient creates a new OpenAILLMClient. It requires the OPENAI_API_KEY
// (or OPENROUTER_API_KEY) environment variable to be set. baseURL falls back
// to OPENAI_BASE_URL. Vision is enabled for OpenRouter endpoints or when
// forced by the caller.
func NewOpenAILLMClient(ctx context.Context, modelName, baseURL string, vision bool) (*OpenAILLMClient, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}
	if baseURL == "" {
		baseURL = os.Getenv("OPENAI_BASE_URL")
	}
	return newOpenAIClient(modelName, baseURL, vision, option.WithAPIKey(apiKey)), nil
}

func newOpenAIClient(modelName, baseURL string, vision bool, opts ...option.RequestOption) *OpenAILLMClient {
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	// The v2 SDK uses functional options for configuration.
	c := openai.NewClient(opts...)
	return &OpenAILLMClient{
		client:  &c,
		model:   modelName,
		baseURL: baseURL,
		vision:  vision || strings.Contains(baseURL, openRouterHost),
	}
}

// Chat sends the conversation to the Chat Completions endpoint.
func (o *OpenAILLMClient) Chat(ctx context.Context, messages []conversation.Message, availableTools []tools.Tool) (*Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(o.model),
		Messages: convertMessagesToOpenaiContent(messages),
		Tools:    convertToolsToOpenAITools(availableTools),
	}

	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to OpenAI")
	}
	return processOpenaiResponse(resp), nil
}

func (o *OpenAILLMClient) SupportsVision() bool { return o.vision }

// DescribeImage sends the system prompt, the probe and the image in a
// single request with no history and no tools.
func (o *OpenAILLMClient) DescribeImage(ctx context.Context, system, probe, dataURL string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(probe),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	}
	resp, err := o.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", errors.Wrapf(err, "failed to send vision request to OpenAI")
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("vision response has no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// processOpenaiResponse converts an OpenAI API response into a Reply. Only the
// first tool call is kept; steps run one tool at a time.
func processOpenaiResponse(resp *openai.ChatCompletion) *Reply {
	if len(resp.Choices) == 0 {
		return &Reply{}
	}
	choice := resp.Choices[0].Message
	if len(choice.ToolCalls) > 0 {
		if len(choice.ToolCalls) > 1 {
			logger.Warn("model requested several tool calls, running the first", "count", len(choice.ToolCalls))
		}
		tc := choice.ToolCalls[0]
		return &Reply{Text: choice.Content, ToolCall: &ToolCall{Name: tc.Function.Name, Args: tc.Function.Arguments}}
	}
	return &Reply{Text: choice.Content}
}

// convertMessagesToOpenaiContent converts the conversation to OpenAI's message params.
func convertMessagesToOpenaiContent(messages []conversation.Message) []openai.ChatCompletionMessageParamUnion {
	chatMessages := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case conversation.RoleSystem:
			chatMessages = append(chatMessages, openai.SystemMessage(msg.Content))
		case conversation.RoleAssistant:
			chatMessages = append(chatMessages, openai.AssistantMessage(msg.Content))
		default:
			chatMessages = append(chatMessages, openai.UserMessage(msg.Content))
		}
	}
	return chatMessages
}

// convertToolsToOpenAITools converts tool definitions to OpenAI function tools.
func convertToolsToOpenAITools(ts []tools.Tool) []openai.ChatCompletionToolUnionParam {
	if len(ts) == 0 {
		return nil
	}
	openAITools := make([]openai.ChatCompletionToolUnionParam, 0, len(ts))
	for _, t := range ts {
		def := t.Definition()
		openAITools = append(openAITools, openai.ChatCompletionFunctionTool(openai.FunctionDefinitionParam{
			Name:        def.Name,
			Description: openai.String(def.Description),
			Parameters:  openai.FunctionParameters(def.JSONSchema()),
		}))
	}
	return openAITools
}
