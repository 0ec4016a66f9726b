// Package mcp exposes the tools of external MCP servers as pengy tools.
package mcp

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/tools"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Client manages the connection to a single MCP server subprocess.
type Client struct {
	name  string
	cmd   *exec.Cmd
	conn  *mcpsdk.ClientSession
	tools map[string]*Tool // keyed by the server's tool name
}

// Connect starts the configured MCP server and discovers its tools.
func Connect(ctx context.Context, server config.MCPServer) (*Client, error) {
	cmd := exec.Command(server.Command, server.Args...)
	cmd.Stderr = os.Stderr
	c, err := ConnectTransport(ctx, server.Name, mcpsdk.NewCommandTransport(cmd))
	if err != nil {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
		return nil, err
	}
	c.cmd = cmd
	return c, nil
}

// ConnectTransport connects over an arbitrary transport and lists the
// server's tools, following pagination cursors.
func ConnectTransport(ctx context.Context, name string, transport mcpsdk.Transport) (*Client, error) {
	sdk := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "pengy", Version: "v1.0.0"}, nil)
	conn, err := sdk.Connect(ctx, transport)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to MCP server '%s'", name)
	}
	c := &Client{
		name:  name,
		conn:  conn,
		tools: make(map[string]*Tool),
	}
	params := &mcpsdk.ListToolsParams{}
	for {
		list, err := conn.ListTools(ctx, params)
		if err != nil {
			conn.Close()
			return nil, errors.Wrapf(err, "failed to list tools from MCP server '%s'", name)
		}
		for _, t := range list.Tools {
			schema, err := json.Marshal(t.InputSchema)
			if err != nil {
				schema = nil
			}
			c.tools[t.Name] = &Tool{
				client: c,
				def:    Definition(t.Name, t.Description, schema),
			}
		}
		if list.NextCursor == "" {
			break
		}
		params.Cursor = list.NextCursor
	}

	logger.Info("initialized MCP client", "server", name, "tools", len(c.tools))
	return c, nil
}

// ConnectAll connects to every configured server and registers each as a
// provider. Servers that fail to start are logged and skipped.
func ConnectAll(ctx context.Context, servers []config.MCPServer, r *tools.Registry) []*Client {
	var clients []*Client
	for _, s := range servers {
		c, err := Connect(ctx, s)
		if err != nil {
			logger.Warn("MCP server unavailable", "server", s.Name, "error", err)
			continue
		}
		r.RegisterProvider(c)
		clients = append(clients, c)
	}
	return clients
}

// Name is the server name used in toolsets ("<name>.<tool>", "<name>.*").
func (c *Client) Name() string { return c.name }

// Tools returns the server's tools sorted by name.
func (c *Client) Tools() []tools.Tool {
	names := make([]string, 0, len(c.tools))
	for n := range c.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]tools.Tool, 0, len(names))
	for _, n := range names {
		out = append(out, c.tools[n])
	}
	return out
}

// Stop terminates the MCP server subprocess.
func (c *Client) Stop() error {
	if c.conn != nil {
		c.conn.Close()
	}
	if c.cmd != nil && c.cmd.Process != nil {
		logger.Info("terminating MCP server", "server", c.name)
		return c.cmd.Process.Kill()
	}
	return nil
}

// Tool is a tool served by an MCP server.
type Tool struct {
	client *Client
	def    tools.Definition
}

// Name returns the server's tool name unqualified; some providers reject
// separators in function names.
func (t *Tool) Name() string { return t.def.Name }

func (t *Tool) Definition() tools.Definition { return t.def }

// Execute forwards the arguments to the MCP server and concatenates the text
// content of the result.
func (t *Tool) Execute(ctx context.Context, args string) (string, error) {
	var arguments map[string]any
	if err := tools.DecodeArgs(args, &arguments); err != nil {
		return "", err
	}
	result, err := t.client.conn.CallTool(ctx, &mcpsdk.CallToolParams{
		Name:      t.def.Name,
		Arguments: arguments,
	})
	if err != nil {
		return "", errors.Tag(errors.KindExecution, errors.Wrapf(err, "failed to call tool '%s'", t.Name()))
	}
	var b strings.Builder
	for _, c := range result.Content {
		if text, ok := c.(*mcpsdk.TextContent); ok {
			b.WriteString(text.Text)
		}
	}
	if result.IsError {
		return "", errors.Errorf(errors.KindExecution, "tool '%s' reported an error: %s", t.Name(), b.String())
	}
	return b.String(), nil
}

// Definition builds a tool definition from an MCP input schema. Schemas
// that are missing or not objects become an empty object schema.
func Definition(name, description string, inputSchema []byte) tools.Definition {
	def := tools.Definition{Name: name, Description: description}
	var schema map[string]any
	if len(inputSchema) > 0 && json.Unmarshal(inputSchema, &schema) == nil && schema != nil {
		if typ, _ := schema["type"].(string); typ == "object" || typ == "" {
			schema["type"] = "object"
			if _, ok := schema["properties"]; !ok {
				schema["properties"] = map[string]any{}
			}
			def.RawSchema = schema
			return def
		}
	}
	def.RawSchema = map[string]any{"type": "object", "properties": map[string]any{}}
	return def
}
