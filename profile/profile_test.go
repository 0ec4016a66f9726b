package profile

import (
	"context"
	"testing"

	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoExecutor struct{ system string }

func (e *echoExecutor) Complete(ctx context.Context, msgs []conversation.Message, available []tools.Tool) ([]conversation.Message, error) {
	e.system = msgs[0].Content
	return append(msgs, conversation.FinalAnswerMessage("ok")), nil
}

type remoteTool struct{ name string }

func (r remoteTool) Name() string { return r.name }
func (r remoteTool) Definition() tools.Definition {
	return tools.Definition{Name: r.name, Description: "remote"}
}
func (r remoteTool) Execute(ctx context.Context, args string) (string, error) { return "", nil }

type fakeProvider struct{}

func (fakeProvider) Name() string { return "lsp" }
func (fakeProvider) Tools() []tools.Tool {
	return []tools.Tool{remoteTool{"definition"}, remoteTool{"references"}}
}

func newBuilder(t *testing.T, cfg *config.Config) *Builder {
	t.Helper()
	return &Builder{
		Executor:  &echoExecutor{},
		Config:    cfg,
		Workspace: tools.NewWorkspace(t.TempDir(), cfg),
	}
}

func TestEveryProfileResolves(t *testing.T) {
	b := newBuilder(t, config.Default())
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			p, err := Get(name)
			require.NoError(t, err)
			set, err := b.Tools(name)
			require.NoError(t, err)
			assert.Equal(t, p.Tools, tools.Names(set))
			assert.Contains(t, p.SystemPrompt(b.Workspace.Root), b.Workspace.Root)
		})
	}
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"chat", "coder", "control", "issue", "researcher", "simple", "tester"}, Names())
	_, err := Get("wizard")
	assert.Error(t, err)
}

func TestConfigToolsetOverridesDefaults(t *testing.T) {
	cfg := config.Default()
	cfg.Toolsets = []config.Toolset{{Name: Chat, Tools: []string{"grep", "lsp.*"}}}
	b := newBuilder(t, cfg)
	b.Providers = []tools.Provider{fakeProvider{}}

	set, err := b.Tools(Chat)
	require.NoError(t, err)
	assert.Equal(t, []string{"grep", "definition", "references"}, tools.Names(set))

	cfg.Toolsets = []config.Toolset{{Name: Chat, Tools: []string{"teleport"}}}
	_, err = b.Tools(Chat)
	assert.Error(t, err)
}

func TestBuildUsesProfilePromptAndFreshTools(t *testing.T) {
	cfg := config.Default()
	cfg.MaxStep = 2
	b := newBuilder(t, cfg)

	first, err := b.Build(Simple)
	require.NoError(t, err)
	second, err := b.Build(Simple)
	require.NoError(t, err)
	assert.NotSame(t, first.Tools()[0], second.Tools()[0])

	res := first.Run(context.Background(), "hi", nil)
	assert.Equal(t, "ok", res.FinalResponse)
	msgs := first.Messages()
	assert.Contains(t, msgs[0].Content, "You are a simple assistant")
}
