package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefinitionFromInputSchema(t *testing.T) {
	def := Definition("definition", "Find a symbol's definition",
		[]byte(`{"type":"object","properties":{"symbol":{"type":"string"}},"required":["symbol"]}`))
	assert.Equal(t, "definition", def.Name)

	schema := def.Schema()
	fn := schema["function"].(map[string]any)
	params := fn["parameters"].(map[string]any)
	assert.Equal(t, "object", params["type"])
	assert.Equal(t, []any{"symbol"}, params["required"])
	assert.Contains(t, params["properties"], "symbol")
}

func TestDefinitionFallsBackToEmptyObject(t *testing.T) {
	empty := map[string]any{"type": "object", "properties": map[string]any{}}

	assert.Equal(t, empty, Definition("a", "", nil).JSONSchema())
	assert.Equal(t, empty, Definition("b", "", []byte(`null`)).JSONSchema())
	assert.Equal(t, empty, Definition("c", "", []byte(`{"type":"string"}`)).JSONSchema())

	untyped := Definition("d", "", []byte(`{}`)).JSONSchema()
	assert.Equal(t, "object", untyped["type"])
	assert.Equal(t, map[string]any{}, untyped["properties"])
}
