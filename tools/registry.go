package tools

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/m4xw311/pengy/config"
)

// Provider is a source of remote tools, such as an MCP server.
type Provider interface {
	Name() string
	Tools() []Tool
}

// Registry holds all available tools.
type Registry struct {
	mu        sync.RWMutex
	tools     map[string]Tool
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{
		tools:     make(map[string]Tool),
		providers: make(map[string]Provider),
	}
}

// NewDefaultRegistry registers every built-in tool for ws.
func NewDefaultRegistry(ws *Workspace, cfg *config.Config) *Registry {
	if cfg == nil {
		cfg = config.Default()
	}
	r := NewRegistry()
	for _, t := range Builtins(ws, cfg) {
		r.Register(t)
	}
	return r
}

// Builtins returns fresh instances of the built-in tools.
func Builtins(ws *Workspace, cfg *config.Config) []Tool {
	return []Tool{
		NewBashTool(ws),
		NewExecuteCommandTool(ws),
		NewReadFileTool(ws),
		NewWriteFileTool(ws),
		NewFindReplaceTool(ws),
		NewGrepTool(ws),
		NewTodoTool(ws),
		NewThinkTool(),
		NewEndTool(),
		NewSummarizerTool(),
		NewVisionJudgeTool(ws),
		NewWebTool(http.DefaultClient, cfg.Web),
		NewGitHubTool(ws, nil),
		NewDocsTool(ws),
		NewVectorSearchTool(ws, NewOpenAIEmbedder(cfg)),
	}
}

func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// RegisterProvider makes the provider's tools addressable as "<provider>.<tool>"
// and "<provider>.*" in toolsets.
func (r *Registry) RegisterProvider(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the built-in tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Providers returns the registered providers sorted by name.
func (r *Registry) Providers() []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Provider, 0, len(r.providers))
	for _, p := range r.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Toolset returns the tool instances for the given names, in order.
// Entries of the form "server.tool" or "server.*" select provider tools.
func (r *Registry) Toolset(names []string) ([]Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var active []Tool
	seen := make(map[string]bool)
	add := func(t Tool) {
		if seen[t.Name()] {
			return
		}
		seen[t.Name()] = true
		active = append(active, t)
	}

	for _, name := range names {
		if t, ok := r.tools[name]; ok {
			add(t)
			continue
		}
		server, toolName, qualified := strings.Cut(name, ".")
		if !qualified {
			return nil, fmt.Errorf("tool '%s' is not registered", name)
		}
		p, ok := r.providers[server]
		if !ok {
			return nil, fmt.Errorf("tool '%s': MCP server '%s' is not registered", name, server)
		}
		found := false
		for _, t := range p.Tools() {
			if toolName == "*" || t.Name() == toolName {
				add(t)
				found = true
			}
		}
		if !found && toolName != "*" {
			return nil, fmt.Errorf("tool '%s' not found on MCP server '%s'", toolName, server)
		}
	}
	return active, nil
}
