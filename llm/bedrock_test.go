package llm

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockTool is a simple mock tool for testing
type MockTool struct {
	name        string
	description string
	result      string
	err         error
	gotArgs     string
}

func (m *MockTool) Name() string {
	return m.name
}

func (m *MockTool) Definition() tools.Definition {
	return tools.Definition{
		Name:        m.name,
		Description: m.description,
		Parameters:  []tools.Parameter{{Name: "param1", Type: "string", Description: "A parameter"}},
		Required:    []string{"param1"},
	}
}

func (m *MockTool) Execute(ctx context.Context, args string) (string, error) {
	m.gotArgs = args
	if m.err != nil {
		return "", m.err
	}
	if m.result == "" {
		return "mock result", nil
	}
	return m.result, nil
}

func TestConvertMessagesToAnthropicFormat(t *testing.T) {
	messages := []conversation.Message{
		conversation.NewMessage(conversation.RoleSystem, "be brief"),
		conversation.NewMessage(conversation.RoleUser, "Hello, world!"),
		conversation.ToolCallMessage("test_tool", `{"param1":"value1"}`),
		conversation.ToolResultMessage("mock result"),
		conversation.NewMessage(conversation.RoleUser, "and then?"),
	}

	result, system := convertMessagesToAnthropicFormat(messages)
	assert.Equal(t, "be brief", system)
	require.Len(t, result, 3)
	assert.Equal(t, "user", result[0]["role"])
	assert.Equal(t, "assistant", result[1]["role"])
	assert.Equal(t, "user", result[2]["role"])

	merged := result[2]["content"].([]map[string]interface{})[0]["text"]
	assert.Equal(t, "Tool result: mock result\n\nand then?", merged)
}

func TestCreateAnthropicRequest(t *testing.T) {
	messages := []map[string]interface{}{
		{
			"role":    "user",
			"content": []map[string]interface{}{{"type": "text", "text": "Hello!"}},
		},
	}

	body, err := createAnthropicRequest(messages, "", nil)
	require.NoError(t, err)
	var plain map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &plain))
	assert.Equal(t, bedrockAnthropicVersion, plain["anthropic_version"])
	assert.NotContains(t, plain, "tools")
	assert.NotContains(t, plain, "system")

	body, err = createAnthropicRequest(messages, "sys", []tools.Tool{
		&MockTool{name: "test_tool", description: "A test tool"},
	})
	require.NoError(t, err)
	var withTools struct {
		System string `json:"system"`
		Tools  []struct {
			Name        string         `json:"name"`
			InputSchema map[string]any `json:"input_schema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(body, &withTools))
	assert.Equal(t, "sys", withTools.System)
	require.Len(t, withTools.Tools, 1)
	assert.Equal(t, "test_tool", withTools.Tools[0].Name)
	assert.Equal(t, []any{"param1"}, withTools.Tools[0].InputSchema["required"])
}

func TestProcessBedrockResponse(t *testing.T) {
	reply, err := processBedrockResponse([]byte(`{"content":[{"type":"text","text":"Done."}]}`))
	require.NoError(t, err)
	assert.Equal(t, "Done.", reply.Text)
	assert.Nil(t, reply.ToolCall)

	reply, err = processBedrockResponse([]byte(`{"content":[
		{"type":"tool_use","id":"a","name":"grep","input":{"pattern":"x"}},
		{"type":"tool_use","id":"b","name":"bash","input":{"cmd":"ls"}}]}`))
	require.NoError(t, err)
	require.NotNil(t, reply.ToolCall)
	assert.Equal(t, "grep", reply.ToolCall.Name)
	assert.JSONEq(t, `{"pattern":"x"}`, reply.ToolCall.Args)

	_, err = processBedrockResponse([]byte(`{"error":"throttled"}`))
	assert.Error(t, err)

	_, err = processBedrockResponse([]byte(`not json`))
	assert.Error(t, err)
}
