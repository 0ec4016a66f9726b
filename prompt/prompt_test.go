package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResearch(t *testing.T) {
	p := Research("add a --json flag", "")
	assert.True(t, strings.HasPrefix(p, "Research the codebase to support this request:\nadd a --json flag\n\n"))
	assert.Contains(t, p, TodoReminder)
	assert.NotContains(t, p, "Conversation history")

	empty := Research("   ", "")
	assert.Equal(t, "Research the codebase and produce a concise report: architecture, key components, dependencies, risks, and implementation recommendations.", empty)

	withHistory := Research("x", "User: earlier question")
	assert.True(t, strings.HasSuffix(withHistory, "\n\nConversation history (for context, include only relevant points):\nUser: earlier question"))
}

func TestImplementationAndTesting(t *testing.T) {
	impl := Implementation("req", "the report", "")
	assert.Contains(t, impl, "User request:\nreq\n\nResearch report:\nthe report\n\n")
	assert.NotContains(t, impl, "Conversation history")

	test := Testing("req", "the report", "the summary", "h")
	assert.Contains(t, test, "Implementation summary:\nthe summary\n\n")
	assert.True(t, strings.HasSuffix(test, "Conversation history (use relevant context):\nh"))
}

func TestSystemPromptsRenderPlaceholders(t *testing.T) {
	for name, build := range map[string]func(string) string{
		"coder":      Coder,
		"researcher": Researcher,
		"tester":     Tester,
		"issue":      Issue,
		"control":    Control,
		"chat":       Chat,
		"simple":     Simple,
	} {
		t.Run(name, func(t *testing.T) {
			p := build("/work/repo")
			assert.Contains(t, p, "/work/repo")
			assert.NotContains(t, p, "{workspace}")
			assert.NotContains(t, p, "{todo_reminder}")
			assert.NotContains(t, p, "{non_interactive}")
		})
	}
}
