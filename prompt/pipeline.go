// Package prompt holds the text templates that seed agents: per-profile
// system prompts and the three pipeline stage prompts.
package prompt

import (
	"fmt"
	"strings"
)

// TodoReminder asks agents to plan with the todo tool.
const TodoReminder = "Create/consult a todo list to structure work; insert tasks before acting and tick when done."

// Research builds the seed for the research stage. history may be empty.
func Research(request, history string) string {
	var b strings.Builder
	if strings.TrimSpace(request) == "" {
		b.WriteString("Research the codebase and produce a concise report: architecture, key components, dependencies, risks, and implementation recommendations.")
	} else {
		fmt.Fprintf(&b, "Research the codebase to support this request:\n%s\n\n"+
			"Produce a concise report covering architecture, key components, dependencies, risks, and actionable recommendations.\n"+
			"Planning: %s", request, TodoReminder)
	}
	appendHistory(&b, "Conversation history (for context, include only relevant points):", history)
	return b.String()
}

// Implementation builds the seed for the implementation stage.
func Implementation(request, research, history string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Implement the requested change using the research insights.\n"+
		"User request:\n%s\n\nResearch report:\n%s\n\n"+
		"Planning: %s. Create a brief plan (≤3 steps) and then implement using the provided tools.",
		request, research, TodoReminder)
	appendHistory(&b, "Conversation history (use relevant context):", history)
	return b.String()
}

// Testing builds the seed for the testing stage.
func Testing(request, research, implementation, history string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Test the implementation.\n"+
		"User request:\n%s\n\nResearch report:\n%s\n\nImplementation summary:\n%s\n\n"+
		"Create targeted tests (or commands) to validate correctness. Explain expected outcomes. Planning: %s.",
		request, research, implementation, TodoReminder)
	appendHistory(&b, "Conversation history (use relevant context):", history)
	return b.String()
}

func appendHistory(b *strings.Builder, header, history string) {
	if history == "" {
		return
	}
	b.WriteString("\n\n")
	b.WriteString(header)
	b.WriteString("\n")
	b.WriteString(history)
}
