package conversation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolCallRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		args string
	}{
		{"bash", `{"command":"ls -la"}`},
		{"summarizer", ""},
		{"grep", `{"pattern":"with arguments"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := ToolCallMessage(tt.name, tt.args)
			assert.Equal(t, RoleAssistant, msg.Role)
			assert.True(t, len(msg.Content) > len(ToolCallPrefix))
			assert.Equal(t, ToolCallPrefix, msg.Content[:len(ToolCallPrefix)])

			name, args, ok := ParseToolCall(msg)
			require.True(t, ok)
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestParseToolCallWithoutSeparator(t *testing.T) {
	name, args, ok := ParseToolCall(NewMessage(RoleAssistant, "Tool call: end"))
	require.True(t, ok)
	assert.Equal(t, "end", name)
	assert.Empty(t, args)

	_, _, ok = ParseToolCall(NewMessage(RoleUser, "Tool call: end"))
	assert.False(t, ok, "only assistant messages carry tool calls")
}

func TestParseToolResult(t *testing.T) {
	msg := ToolResultMessage("data:image/png;base64,AAA=")
	assert.Equal(t, RoleUser, msg.Role)
	text, ok := ParseToolResult(msg)
	require.True(t, ok)
	assert.Equal(t, "data:image/png;base64,AAA=", text)

	_, ok = ParseToolResult(NewMessage(RoleUser, "hello"))
	assert.False(t, ok)
}

func TestIsFinalAnswer(t *testing.T) {
	assert.True(t, IsFinalAnswer(FinalAnswerMessage("done")))
	assert.False(t, IsFinalAnswer(ToolCallMessage("bash", "{}")))
	assert.False(t, IsFinalAnswer(NewMessage(RoleAssistant, "Tool call:bash")))
	assert.False(t, IsFinalAnswer(NewMessage(RoleUser, "done")))
}

func TestDecodeUnit(t *testing.T) {
	unit, err := DecodeUnit([]Message{FinalAnswerMessage("hi")})
	require.NoError(t, err)
	assert.Equal(t, FinalAnswer{Text: "hi"}, unit)

	pair := EncodeUnit(ToolCallUnit{Name: "bash", Args: `{"command":"pwd"}`, Result: "/repo"})
	unit, err = DecodeUnit(pair)
	require.NoError(t, err)
	assert.Equal(t, ToolCallUnit{Name: "bash", Args: `{"command":"pwd"}`, Result: "/repo"}, unit)

	_, err = DecodeUnit(nil)
	assert.Error(t, err)
	_, err = DecodeUnit([]Message{ToolCallMessage("bash", "{}")})
	assert.Error(t, err)
	_, err = DecodeUnit([]Message{ToolCallMessage("bash", "{}"), NewMessage(RoleUser, "oops")})
	assert.Error(t, err)
	_, err = DecodeUnit(append(pair, FinalAnswerMessage("x")))
	assert.Error(t, err)
}

func TestConversationExtend(t *testing.T) {
	c := New("system prompt")
	c.Append(NewMessage(RoleUser, "list files"))

	next := append(c.Messages(), EncodeUnit(ToolCallUnit{Name: "bash", Args: "{}", Result: "a.go"})...)
	unit, err := c.Extend(next)
	require.NoError(t, err)
	assert.IsType(t, ToolCallUnit{}, unit)
	assert.Equal(t, 4, c.Len())

	t.Run("no growth", func(t *testing.T) {
		_, err := c.Extend(c.Messages())
		assert.Error(t, err)
	})

	t.Run("rewritten history", func(t *testing.T) {
		bad := c.Messages()
		bad[1] = NewMessage(RoleUser, "something else")
		bad = append(bad, FinalAnswerMessage("ok"))
		_, err := c.Extend(bad)
		assert.Error(t, err)
		assert.Equal(t, 4, c.Len())
	})

	assert.Equal(t, "system prompt", c.SystemPrompt())
}

func TestFinalAnswerText(t *testing.T) {
	msgs := []Message{
		NewMessage(RoleSystem, "sys"),
		NewMessage(RoleUser, "q"),
		FinalAnswerMessage("first"),
		ToolCallMessage("bash", "{}"),
		ToolResultMessage("out"),
	}
	text, ok := FinalAnswerText(msgs)
	require.True(t, ok)
	assert.Equal(t, "first", text)

	_, ok = FinalAnswerText(msgs[:2])
	assert.False(t, ok)
}

func TestLastUserInputSkipsToolResults(t *testing.T) {
	c := New("sys")
	c.Append(NewMessage(RoleUser, "fix the bug"))
	c.Append(ToolCallMessage("bash", "{}"))
	c.Append(ToolResultMessage("ok"))
	text, ok := c.LastUserInput()
	require.True(t, ok)
	assert.Equal(t, "fix the bug", text)
}

func TestFromMessages(t *testing.T) {
	_, err := FromMessages([]Message{NewMessage(RoleUser, "x")})
	assert.Error(t, err)
	c, err := FromMessages([]Message{NewMessage(RoleSystem, "s"), NewMessage(RoleUser, "x")})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
}

func TestTranscript(t *testing.T) {
	msgs := []Message{
		NewMessage(RoleSystem, "sys"),
		NewMessage(RoleUser, "q"),
		ToolCallMessage("bash", "{}"),
		ToolResultMessage("out"),
		FinalAnswerMessage("a"),
	}
	assert.Equal(t, "User: q\nAssistant: Tool call: bash with arguments: {}\nAssistant: a\n", Transcript(msgs))
}

func TestCompact(t *testing.T) {
	c := New("sys")
	c.Append(NewMessage(RoleUser, "first"))
	c.Append(FinalAnswerMessage("ok"))
	c.Append(NewMessage(RoleUser, "tidy up"))
	c.Append(ToolCallMessage("summarizer", "{}"))
	c.Append(ToolResultMessage("SUMMARIZE_CONVERSATION"))

	c.Compact("Summary: we tidied")
	assert.Equal(t, []Message{
		NewMessage(RoleSystem, "sys"),
		NewMessage(RoleAssistant, "Summary: we tidied"),
		NewMessage(RoleUser, "tidy up"),
	}, c.Messages())
}

func TestCompactWithoutUserInput(t *testing.T) {
	c := New("sys")
	c.Compact("Summary: Previous conversation context")
	assert.Equal(t, 2, c.Len())
	last, ok := c.Last()
	require.True(t, ok)
	assert.Equal(t, RoleAssistant, last.Role)
}
