package conversation

import (
	"fmt"
	"strings"
)

// Markers of the textual tool-call protocol. Every reader and writer of the
// conversation goes through the helpers below rather than matching strings.
const (
	toolCallMarker   = "Tool call:"
	ToolCallPrefix   = toolCallMarker + " "
	ArgsSeparator    = " with arguments: "
	ToolResultPrefix = "Tool result: "
)

// ToolCallMessage encodes an invocation as the assistant half of a pair.
func ToolCallMessage(name, args string) Message {
	return NewMessage(RoleAssistant, ToolCallPrefix+name+ArgsSeparator+args)
}

// ToolResultMessage encodes what the capability returned as the user half of a pair.
func ToolResultMessage(result string) Message {
	return NewMessage(RoleUser, ToolResultPrefix+result)
}

// FinalAnswerMessage wraps a natural-language answer.
func FinalAnswerMessage(text string) Message {
	return NewMessage(RoleAssistant, text)
}

// IsToolCallText reports whether text begins with the tool-call marker.
func IsToolCallText(text string) bool {
	return strings.HasPrefix(text, toolCallMarker)
}

// ParseToolCallText splits "Tool call: <name> with arguments: <args>". Without
// the separator the whole remainder is the name and args are empty.
func ParseToolCallText(text string) (name, args string, ok bool) {
	if !IsToolCallText(text) {
		return "", "", false
	}
	rest := strings.TrimPrefix(text, toolCallMarker)
	rest = strings.TrimPrefix(rest, " ")
	if n, a, found := strings.Cut(rest, ArgsSeparator); found {
		return n, a, true
	}
	return rest, "", true
}

// ParseToolCall decodes an assistant tool-call message.
func ParseToolCall(m Message) (name, args string, ok bool) {
	if m.Role != RoleAssistant {
		return "", "", false
	}
	return ParseToolCallText(m.Content)
}

// ParseToolResult decodes a user tool-result message.
func ParseToolResult(m Message) (string, bool) {
	if m.Role != RoleUser || !strings.HasPrefix(m.Content, ToolResultPrefix) {
		return "", false
	}
	return strings.TrimPrefix(m.Content, ToolResultPrefix), true
}

// IsFinalAnswer reports whether m is an assistant message that is not a tool call.
func IsFinalAnswer(m Message) bool {
	return m.Role == RoleAssistant && !IsToolCallText(m.Content)
}

// Unit is what one step appends: a ToolCallUnit or a FinalAnswer.
type Unit interface {
	unit()
}

type ToolCallUnit struct {
	Name   string
	Args   string
	Result string
}

type FinalAnswer struct {
	Text string
}

func (ToolCallUnit) unit() {}
func (FinalAnswer) unit()  {}

// DecodeUnit interprets the messages appended by one step.
func DecodeUnit(appended []Message) (Unit, error) {
	switch len(appended) {
	case 1:
		if !IsFinalAnswer(appended[0]) {
			return nil, fmt.Errorf("single appended message is not a final answer")
		}
		return FinalAnswer{Text: appended[0].Content}, nil
	case 2:
		name, args, ok := ParseToolCall(appended[0])
		if !ok {
			return nil, fmt.Errorf("first appended message is not a tool call")
		}
		result, ok := ParseToolResult(appended[1])
		if !ok {
			return nil, fmt.Errorf("tool call %q is not followed by a tool result", name)
		}
		return ToolCallUnit{Name: name, Args: args, Result: result}, nil
	default:
		return nil, fmt.Errorf("step appended %d messages, expected 1 or 2", len(appended))
	}
}

// EncodeUnit is the inverse of DecodeUnit.
func EncodeUnit(u Unit) []Message {
	switch v := u.(type) {
	case ToolCallUnit:
		return []Message{ToolCallMessage(v.Name, v.Args), ToolResultMessage(v.Result)}
	case FinalAnswer:
		return []Message{FinalAnswerMessage(v.Text)}
	default:
		return nil
	}
}

// FinalAnswerText returns the last assistant message that is not a tool call.
// This is the artifact handed from one pipeline stage to the next.
func FinalAnswerText(msgs []Message) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if IsFinalAnswer(msgs[i]) {
			return msgs[i].Content, true
		}
	}
	return "", false
}

// Transcript renders messages as "Role: content" lines, skipping the system
// message and tool results.
func Transcript(msgs []Message) string {
	var b strings.Builder
	for _, m := range msgs {
		switch m.Role {
		case RoleSystem:
			continue
		case RoleUser:
			if _, ok := ParseToolResult(m); ok {
				continue
			}
			fmt.Fprintf(&b, "User: %s\n", m.Content)
		case RoleAssistant:
			fmt.Fprintf(&b, "Assistant: %s\n", m.Content)
		}
	}
	return b.String()
}
