package tools

import (
	"context"
	"testing"

	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubTool struct {
	base
	out string
}

func newStub(name, out string) *stubTool {
	return &stubTool{base: base{def: Definition{Name: name, Description: name + " tool"}}, out: out}
}

func (s *stubTool) Execute(ctx context.Context, args string) (string, error) { return s.out, nil }

type stubProvider struct {
	name  string
	tools []Tool
}

func (p *stubProvider) Name() string  { return p.name }
func (p *stubProvider) Tools() []Tool { return p.tools }

func TestDefinitionSchema(t *testing.T) {
	def := Definition{
		Name:        "todo",
		Description: "manage tasks",
		Parameters: []Parameter{
			{Name: "action", Type: "string", Description: "what to do", Enum: []string{"read", "modify"}},
			{Name: "operations", Type: "array", Items: "object", Description: "batch"},
			{Name: "note", Description: "untyped"},
		},
		Required: []string{"action"},
	}
	schema := def.Schema()
	assert.Equal(t, "function", schema["type"])

	fn := schema["function"].(map[string]any)
	assert.Equal(t, "todo", fn["name"])
	assert.Equal(t, "manage tasks", fn["description"])

	params := fn["parameters"].(map[string]any)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []string{"action"}, params["required"])

	props := params["properties"].(map[string]any)
	action := props["action"].(map[string]any)
	assert.Equal(t, []string{"read", "modify"}, action["enum"])
	ops := props["operations"].(map[string]any)
	assert.Equal(t, map[string]any{"type": "object"}, ops["items"])
	note := props["note"].(map[string]any)
	assert.Equal(t, "string", note["type"])
}

func TestDefinitionSchemaNoParameters(t *testing.T) {
	params := Definition{Name: "summarizer"}.JSONSchema()
	assert.Equal(t, []string{}, params["required"])
	assert.Empty(t, params["properties"])

	raw := map[string]any{"type": "object", "properties": map[string]any{"q": map[string]any{"type": "string"}}}
	assert.Equal(t, raw, Definition{Name: "remote", RawSchema: raw}.JSONSchema())
}

func TestDecodeArgs(t *testing.T) {
	type args struct {
		Path  string   `json:"path"`
		Start flexInt  `json:"start"`
		Whole flexBool `json:"whole"`
	}
	tests := []struct {
		name  string
		input string
		want  args
	}{
		{"strict json", `{"path":"a.go","start":3,"whole":true}`, args{Path: "a.go", Start: flexInt{3, true}, Whole: true}},
		{"stringly typed", `{"path":"a.go","start":"7","whole":"false"}`, args{Path: "a.go", Start: flexInt{7, true}}},
		{"empty payload", ``, args{}},
		{"json5 trailing comma", `{"path": "b.go",}`, args{Path: "b.go"}},
		{"json5 unquoted key", `{path: "c.go"}`, args{Path: "c.go"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got args
			require.NoError(t, DecodeArgs(tt.input, &got))
			assert.Equal(t, tt.want, got)
		})
	}

	var got args
	err := DecodeArgs(`not json at all`, &got)
	require.Error(t, err)
	assert.Equal(t, errors.KindExecution, errors.KindOf(err))
}

func TestFindExactMatch(t *testing.T) {
	set := []Tool{newStub("read_file", "r"), newStub("read", "x")}
	tool, ok := Find(set, "read")
	require.True(t, ok)
	assert.Equal(t, "read", tool.Name())

	_, ok = Find(set, "READ")
	assert.False(t, ok)
	_, ok = Find(set, "read_")
	assert.False(t, ok)
	assert.Equal(t, []string{"read_file", "read"}, Names(set))
}

func TestRegistryToolset(t *testing.T) {
	r := NewRegistry()
	r.Register(newStub("bash", "b"))
	r.Register(newStub("think", "t"))
	r.RegisterProvider(&stubProvider{name: "gopls", tools: []Tool{newStub("definition", "d"), newStub("references", "r")}})

	set, err := r.Toolset([]string{"think", "bash", "think"})
	require.NoError(t, err)
	assert.Equal(t, []string{"think", "bash"}, Names(set))

	set, err = r.Toolset([]string{"gopls.*"})
	require.NoError(t, err)
	assert.Equal(t, []string{"definition", "references"}, Names(set))

	set, err = r.Toolset([]string{"gopls.references"})
	require.NoError(t, err)
	assert.Equal(t, []string{"references"}, Names(set))

	_, err = r.Toolset([]string{"missing"})
	assert.Error(t, err)
	_, err = r.Toolset([]string{"other.tool"})
	assert.Error(t, err)
	_, err = r.Toolset([]string{"gopls.rename"})
	assert.Error(t, err)

	assert.Equal(t, []string{"bash", "think"}, r.Names())
	require.Len(t, r.Providers(), 1)
}

func TestDefaultRegistryHasBuiltins(t *testing.T) {
	r := NewDefaultRegistry(NewWorkspace(t.TempDir(), nil), config.Default())
	for _, name := range []string{
		"bash", "execute_command", "read_file", "write_file", "find_replace", "grep",
		"todo", "think", "end", "summarizer", "vision_judge", "web", "github", "docs_researcher", "vector_search",
	} {
		tool, ok := r.Get(name)
		if assert.True(t, ok, name) {
			assert.Equal(t, name, tool.Definition().Name)
		}
	}
}
