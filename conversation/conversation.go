package conversation

import "fmt"

// Role tags who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged entry. Messages are never modified once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

func NewMessage(role Role, content string) Message {
	return Message{Role: role, Content: content}
}

// Conversation is the ordered message log owned by one agent. Index 0 is the
// system message; everything after it is appended at the tail.
type Conversation struct {
	messages []Message
}

// New creates a conversation seeded with the system prompt.
func New(systemPrompt string) *Conversation {
	return &Conversation{messages: []Message{NewMessage(RoleSystem, systemPrompt)}}
}

// FromMessages rebuilds a conversation from a message list. The first message
// must be the system message.
func FromMessages(msgs []Message) (*Conversation, error) {
	if len(msgs) == 0 || msgs[0].Role != RoleSystem {
		return nil, fmt.Errorf("conversation must start with a system message")
	}
	c := &Conversation{messages: make([]Message, len(msgs))}
	copy(c.messages, msgs)
	return c, nil
}

// Append adds a message at the tail.
func (c *Conversation) Append(msg Message) {
	c.messages = append(c.messages, msg)
}

// Messages returns a copy of the log, safe to hand to a step executor.
func (c *Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

func (c *Conversation) Len() int { return len(c.messages) }

// SystemPrompt returns the content of the leading system message.
func (c *Conversation) SystemPrompt() string {
	return c.messages[0].Content
}

// Last returns the tail message; ok is false only for an empty log.
func (c *Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Extend replaces the log with next, which must be the current log plus one
// protocol unit. It returns the decoded unit.
func (c *Conversation) Extend(next []Message) (Unit, error) {
	if len(next) <= len(c.messages) {
		return nil, fmt.Errorf("step returned %d messages, expected more than %d", len(next), len(c.messages))
	}
	for i, m := range c.messages {
		if next[i] != m {
			return nil, fmt.Errorf("step rewrote message %d", i)
		}
	}
	unit, err := DecodeUnit(next[len(c.messages):])
	if err != nil {
		return nil, err
	}
	c.messages = append(c.messages, next[len(c.messages):]...)
	return unit, nil
}

// LastUserInput returns the most recent user message that is not a tool result.
func (c *Conversation) LastUserInput() (string, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		m := c.messages[i]
		if m.Role != RoleUser {
			continue
		}
		if _, isResult := ParseToolResult(m); isResult {
			continue
		}
		return m.Content, true
	}
	return "", false
}

// Compact replaces the history with the system message, summary as an
// assistant message, and the most recent user input.
func (c *Conversation) Compact(summary string) {
	last, hasLast := c.LastUserInput()
	compacted := []Message{c.messages[0], NewMessage(RoleAssistant, summary)}
	if hasLast {
		compacted = append(compacted, NewMessage(RoleUser, last))
	}
	c.messages = compacted
}
