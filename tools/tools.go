package tools

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/m4xw311/pengy/errors"
	"github.com/titanous/json5"
)

// Tool defines the interface for any action the agent can take.
//
// Execute receives the raw argument payload the model produced (normally a
// JSON object). A returned error is reported back to the model as the tool
// result, it never aborts the step.
type Tool interface {
	Name() string
	Definition() Definition
	Execute(ctx context.Context, args string) (string, error)
}

// Parameter declares one argument of a tool.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "boolean", "array", "object"
	Description string
	Enum        []string
	// Items is the element type when Type is "array".
	Items string
}

// Definition is the declarative description a tool advertises to the model.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
	Required    []string
	// RawSchema, when set, is used verbatim as the parameters object.
	RawSchema map[string]any
}

// JSONSchema returns the "parameters" object of the definition.
func (d Definition) JSONSchema() map[string]any {
	if d.RawSchema != nil {
		return d.RawSchema
	}
	props := make(map[string]any, len(d.Parameters))
	for _, p := range d.Parameters {
		typ := p.Type
		if typ == "" {
			typ = "string"
		}
		prop := map[string]any{
			"type":        typ,
			"description": p.Description,
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if typ == "array" {
			items := p.Items
			if items == "" {
				items = "string"
			}
			prop["items"] = map[string]any{"type": items}
		}
		props[p.Name] = prop
	}
	required := d.Required
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// Schema returns the function-tool descriptor:
// {type:"function", function:{name, description, parameters}}.
func (d Definition) Schema() map[string]any {
	return map[string]any{
		"type": "function",
		"function": map[string]any{
			"name":        d.Name,
			"description": d.Description,
			"parameters":  d.JSONSchema(),
		},
	}
}

// base carries the definition so concrete tools only implement Execute.
type base struct {
	def Definition
}

func (b *base) Name() string           { return b.def.Name }
func (b *base) Definition() Definition { return b.def }

// Find returns the tool with exactly the given name.
func Find(set []Tool, name string) (Tool, bool) {
	for _, t := range set {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}

// Names lists tool names in order.
func Names(set []Tool) []string {
	names := make([]string, 0, len(set))
	for _, t := range set {
		names = append(names, t.Name())
	}
	return names
}

// DecodeArgs unmarshals a tool payload into v. Empty payloads decode as {}.
// Payloads that are not strict JSON (trailing commas, single quotes,
// unquoted keys) are retried as JSON5 since models emit those regularly.
func DecodeArgs(args string, v any) error {
	args = strings.TrimSpace(args)
	if args == "" {
		args = "{}"
	}
	err := json.Unmarshal([]byte(args), v)
	if err == nil {
		return nil
	}
	if err5 := json5.Unmarshal([]byte(args), v); err5 == nil {
		return nil
	}
	return errors.Tag(errors.KindExecution, errors.Wrapf(err, "invalid arguments"))
}

// flexInt accepts 3 or "3"; schemas in the wild declare numbers as strings.
type flexInt struct {
	Value int
	Set   bool
}

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.Value, f.Set = n, true
	return nil
}

// flexBool accepts true or "true".
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	*f = flexBool(v)
	return nil
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "\n...[truncated]"
}
