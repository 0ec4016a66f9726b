package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/tools"
)

const bedrockAnthropicVersion = "bedrock-2023-05-31"

// BedrockLLMClient is a client for the Anthropic models on AWS Bedrock.
type BedrockLLMClient struct {
	client  *bedrockruntime.Client
	modelID string
	region  string
}

// NewBedrockLLMClient creates a new BedrockLLMClient.
// It requires AWS credentials to be configured in the environment.
// BEDROCK_ENDPOINT_URL overrides the service endpoint.
func NewBedrockLLMClient(ctx context.Context, modelID string) (*BedrockLLMClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}

	region := cfg.Region
	if region == "" {
		region = os.Getenv("AWS_DEFAULT_REGION")
	}
	if region == "" {
		region = "us-east-1"
	}
	cfg.Region = region

	endpoint := os.Getenv("BEDROCK_ENDPOINT_URL")
	client := bedrockruntime.NewFromConfig(cfg, func(o *bedrockruntime.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return &BedrockLLMClient{client: client, modelID: modelID, region: region}, nil
}

// Chat sends a chat request to the Anthropic model via AWS Bedrock.
func (b *BedrockLLMClient) Chat(ctx context.Context, messages []conversation.Message, availableTools []tools.Tool) (*Reply, error) {
	anthropicMessages, systemPrompt := convertMessagesToAnthropicFormat(messages)

	requestBody, err := createAnthropicRequest(anthropicMessages, systemPrompt, availableTools)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create Anthropic request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        requestBody,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}
	return processBedrockResponse(resp.Body)
}

// convertMessagesToAnthropicFormat converts the conversation to the raw
// Anthropic message format Bedrock expects. Tool traffic is already text, so
// every turn is a single text block.
func convertMessagesToAnthropicFormat(messages []conversation.Message) ([]map[string]interface{}, string) {
	systemPrompt, rest := splitSystem(messages)
	var anthropicMessages []map[string]interface{}
	for _, msg := range mergeConsecutive(rest) {
		role := "user"
		if msg.Role == conversation.RoleAssistant {
			role = "assistant"
		}
		anthropicMessages = append(anthropicMessages, map[string]interface{}{
			"role": role,
			"content": []map[string]interface{}{
				{"type": "text", "text": msg.Content},
			},
		})
	}
	return anthropicMessages, systemPrompt
}

// createAnthropicRequest creates the request body for Anthropic models on Bedrock.
func createAnthropicRequest(messages []map[string]interface{}, systemPrompt string, availableTools []tools.Tool) ([]byte, error) {
	request := map[string]interface{}{
		"anthropic_version": bedrockAnthropicVersion,
		"max_tokens":        anthropicMaxTokens,
		"messages":          messages,
	}
	if systemPrompt != "" {
		request["system"] = systemPrompt
	}
	if len(availableTools) > 0 {
		var ts []map[string]interface{}
		for _, tool := range availableTools {
			def := tool.Definition()
			ts = append(ts, map[string]interface{}{
				"name":         def.Name,
				"description":  def.Description,
				"input_schema": def.JSONSchema(),
			})
		}
		request["tools"] = ts
	}
	return json.Marshal(request)
}

// processBedrockResponse converts a Bedrock API response body into a Reply.
func processBedrockResponse(body []byte) (*Reply, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal Bedrock response")
	}
	if errMsg, ok := response["error"]; ok {
		return nil, errors.New("Bedrock API error: %v", errMsg)
	}

	content, ok := response["content"]
	if !ok {
		return &Reply{}, nil
	}
	contentArray, ok := content.([]interface{})
	if !ok {
		return nil, errors.New("unexpected content format in Bedrock response")
	}

	reply := &Reply{}
	for _, item := range contentArray {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		switch itemMap["type"] {
		case "text":
			if text, ok := itemMap["text"].(string); ok {
				reply.Text += text
			}
		case "tool_use":
			name, _ := itemMap["name"].(string)
			if name == "" {
				continue
			}
			if reply.ToolCall != nil {
				logger.Warn("model requested several tool calls, running the first", "skipped", name)
				continue
			}
			args := []byte("{}")
			if input, ok := itemMap["input"]; ok && input != nil {
				encoded, err := json.Marshal(input)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to encode arguments for tool '%s'", name)
				}
				args = encoded
			}
			reply.ToolCall = &ToolCall{Name: name, Args: string(args)}
		}
	}
	return reply, nil
}
