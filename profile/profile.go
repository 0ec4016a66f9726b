// Package profile defines the named agent configurations (tool list plus
// system prompt) and builds agents from them.
package profile

import (
	"sort"

	"github.com/m4xw311/pengy/agent"
	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/prompt"
	"github.com/m4xw311/pengy/tools"
)

const (
	Coder      = "coder"
	Researcher = "researcher"
	Tester     = "tester"
	Issue      = "issue"
	Control    = "control"
	Chat       = "chat"
	Simple     = "simple"
)

// Profile is a default tool list and a system prompt template.
type Profile struct {
	Name        string
	Description string
	Tools       []string
	prompt      func(workspace string) string
}

// SystemPrompt renders the profile's prompt for the workspace root.
func (p Profile) SystemPrompt(workspace string) string { return p.prompt(workspace) }

var profiles = map[string]Profile{
	Coder: {
		Name:        Coder,
		Description: "Implements changes with file, search and shell tools",
		Tools:       []string{"write_file", "bash", "read_file", "find_replace", "grep", "docs_researcher", "todo", "web", "vision_judge", "summarizer", "think", "end"},
		prompt:      prompt.Coder,
	},
	Researcher: {
		Name:        Researcher,
		Description: "Studies the codebase and writes a research report",
		Tools:       []string{"grep", "bash", "read_file", "write_file", "docs_researcher", "vector_search", "todo", "web", "summarizer"},
		prompt:      prompt.Researcher,
	},
	Tester: {
		Name:        Tester,
		Description: "Writes and runs tests for recent changes",
		Tools:       []string{"bash", "execute_command", "read_file", "write_file", "find_replace", "grep", "docs_researcher", "todo", "web", "vision_judge", "summarizer"},
		prompt:      prompt.Tester,
	},
	Issue: {
		Name:        Issue,
		Description: "Investigates problems and files GitHub issues",
		Tools:       []string{"todo", "bash", "find_replace", "github", "summarizer", "end"},
		prompt:      prompt.Issue,
	},
	Control: {
		Name:        Control,
		Description: "Commits changes and manages pull requests",
		Tools:       []string{"bash", "github", "summarizer", "end"},
		prompt:      prompt.Control,
	},
	Chat: {
		Name:        Chat,
		Description: "Read-only questions about the code",
		Tools:       []string{"grep", "read_file", "summarizer", "end"},
		prompt:      prompt.Chat,
	},
	Simple: {
		Name:        Simple,
		Description: "Shell access and nothing else",
		Tools:       []string{"bash", "end"},
		prompt:      prompt.Simple,
	},
}

// Get returns the named profile.
func Get(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, errors.New("unknown profile '%s' (available: %v)", name, Names())
	}
	return p, nil
}

// Names lists the profiles in sorted order.
func Names() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Builder creates agents for profiles. Every Build gets fresh tool
// instances, so stateful tools such as bash are never shared between agents.
type Builder struct {
	Executor  agent.Executor
	Config    *config.Config
	Workspace *tools.Workspace
	// Providers contribute remote tools (MCP servers) to every agent.
	Providers []tools.Provider
	// Options are appended after the config-derived ones.
	Options []agent.Option
}

// Tools resolves the tool set for a profile. A config toolset with the
// profile's name replaces the default list.
func (b *Builder) Tools(name string) ([]tools.Tool, error) {
	p, err := Get(name)
	if err != nil {
		return nil, err
	}
	cfg := b.config()
	names := p.Tools
	if ts, ok := cfg.GetToolset(name); ok {
		names = ts.Tools
	}

	reg := tools.NewDefaultRegistry(b.Workspace, cfg)
	for _, provider := range b.Providers {
		reg.RegisterProvider(provider)
	}
	set, err := reg.Toolset(names)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve tools for profile '%s'", name)
	}
	return set, nil
}

// Build returns a new agent for the named profile.
func (b *Builder) Build(name string) (*agent.Agent, error) {
	p, err := Get(name)
	if err != nil {
		return nil, err
	}
	set, err := b.Tools(name)
	if err != nil {
		return nil, err
	}
	cfg := b.config()
	opts := append([]agent.Option{
		agent.WithMaxStep(cfg.MaxStep),
		agent.WithMaxRetry(cfg.MaxRetry),
	}, b.Options...)
	return agent.New(b.Executor, set, p.SystemPrompt(b.Workspace.Root), opts...), nil
}

func (b *Builder) config() *config.Config {
	if b.Config == nil {
		return config.Default()
	}
	return b.Config
}
