package llm

import (
	"context"
	"encoding/json"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/tools"
	"google.golang.org/api/option"
)

// GeminiLLMClient is a client for the Google Gemini API.
type GeminiLLMClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiLLMClient creates a new GeminiLLMClient.
// It requires the GEMINI_API_KEY environment variable to be set.
func NewGeminiLLMClient(ctx context.Context, modelName string) (*GeminiLLMClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}

	return &GeminiLLMClient{client: client, modelName: modelName}, nil
}

// Chat sends a chat request to the Gemini API.
func (g *GeminiLLMClient) Chat(ctx context.Context, messages []conversation.Message, availableTools []tools.Tool) (*Reply, error) {
	systemPrompt, history := convertMessagesToGeminiContent(messages)
	if len(history) == 0 {
		return nil, errors.New("no messages to send to Gemini")
	}

	// A fresh model per call; GenerativeModel carries mutable tool state.
	model := g.client.GenerativeModel(g.modelName)
	model.Tools = convertToolsToGeminiTools(availableTools)
	if systemPrompt != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(systemPrompt)}}
	}

	// The last message is the new prompt.
	lastMessage := history[len(history)-1]

	chatSession := model.StartChat()
	chatSession.History = history[:len(history)-1]
	resp, err := chatSession.SendMessage(ctx, lastMessage.Parts...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Gemini")
	}
	return processGeminiResponse(resp)
}

// convertMessagesToGeminiContent converts the conversation to Gemini's content
// format. Gemini expects alternating user/model turns.
func convertMessagesToGeminiContent(messages []conversation.Message) (string, []*genai.Content) {
	systemPrompt, rest := splitSystem(messages)
	var contents []*genai.Content
	for _, msg := range mergeConsecutive(rest) {
		role := "user"
		if msg.Role == conversation.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}
	return systemPrompt, contents
}

// convertToolsToGeminiTools converts tool definitions to Gemini function declarations.
func convertToolsToGeminiTools(ts []tools.Tool) []*genai.Tool {
	if len(ts) == 0 {
		return nil
	}
	funcDecls := make([]*genai.FunctionDeclaration, 0, len(ts))
	for _, t := range ts {
		def := t.Definition()
		funcDecls = append(funcDecls, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  toGeminiSchema(def.JSONSchema()),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: funcDecls}}
}

// toGeminiSchema converts a JSON schema object into genai.Schema. Unknown
// keywords are dropped.
func toGeminiSchema(s map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: geminiType(s["type"])}
	if d, ok := s["description"].(string); ok {
		schema.Description = d
	}
	switch enum := s["enum"].(type) {
	case []string:
		schema.Enum = enum
	case []any:
		for _, v := range enum {
			if str, ok := v.(string); ok {
				schema.Enum = append(schema.Enum, str)
			}
		}
	}
	if props, ok := s["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				schema.Properties[name] = toGeminiSchema(pm)
			}
		}
	}
	if items, ok := s["items"].(map[string]any); ok {
		schema.Items = toGeminiSchema(items)
	}
	switch req := s["required"].(type) {
	case []string:
		schema.Required = req
	case []any:
		for _, v := range req {
			if str, ok := v.(string); ok {
				schema.Required = append(schema.Required, str)
			}
		}
	}
	return schema
}

func geminiType(t any) genai.Type {
	switch t {
	case "object":
		return genai.TypeObject
	case "array":
		return genai.TypeArray
	case "integer":
		return genai.TypeInteger
	case "number":
		return genai.TypeNumber
	case "boolean":
		return genai.TypeBoolean
	default:
		return genai.TypeString
	}
}

// processGeminiResponse converts a Gemini API response into a Reply.
func processGeminiResponse(resp *genai.GenerateContentResponse) (*Reply, error) {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("received an empty response from Gemini")
	}

	reply := &Reply{}
	for _, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			reply.Text += string(v)
		case genai.FunctionCall:
			if reply.ToolCall != nil {
				logger.Warn("model requested several tool calls, running the first", "skipped", v.Name)
				continue
			}
			args, err := json.Marshal(v.Args)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to encode arguments for tool '%s'", v.Name)
			}
			reply.ToolCall = &ToolCall{Name: v.Name, Args: string(args)}
		default:
			return nil, errors.New("unsupported part type in Gemini response: %T", v)
		}
	}
	return reply, nil
}
