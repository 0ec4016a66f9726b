package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/m4xw311/pengy/agent"
	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
)

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
)

// maxContentSize bounds inlined resource_link file contents.
const maxContentSize = 50000

// Factory creates the agent backing a new session. cwd is the working
// directory the client asked for and may be empty.
type Factory func(cwd string) (*agent.Agent, error)

// Run starts the Agent Client Protocol server over stdio using JSON-RPC.
// It implements a minimal subset of ACP:
//   - initialize
//   - session/new
//   - session/load (replays an in-memory session)
//   - session/prompt (emits session/update notifications)
//   - session/cancel
//
// Messages are newline-delimited JSON objects. Nothing but JSON-RPC is
// written to out; diagnostics go to the logger. Run returns on EOF once every
// in-flight prompt has answered.
func Run(ctx context.Context, newAgent Factory, in io.Reader, out io.Writer) error {
	s := &acpServer{
		ctx:      ctx,
		newAgent: newAgent,
		sessions: make(map[string]*session),
		in:       bufio.NewReader(in),
		out:      bufio.NewWriter(out),
		log:      logger.Default.With("component", "acp"),
	}
	defer s.prompts.Wait()

	s.log.Debug("starting ACP server")
	for {
		payload, err := s.readFramedMessage()
		if err != nil {
			if err == io.EOF {
				s.log.Debug("EOF received, exiting")
				return nil
			}
			// Broken framing leaves no safe way to continue.
			return errors.Wrapf(err, "ACP: read error")
		}
		if len(strings.TrimSpace(string(payload))) == 0 {
			continue
		}

		var req jsonrpcRequest
		if err := json.Unmarshal(payload, &req); err != nil {
			s.log.Debug("JSON parse error", "error", err)
			_ = s.writeResponseError(nil, codeParseError, "Parse error", nil)
			continue
		}

		s.log.Debug("dispatching", "method", req.Method, "id", req.ID)
		switch req.Method {
		case "initialize":
			s.handleInitialize(&req)
		case "session/new":
			s.handleSessionNew(&req)
		case "session/load":
			s.handleSessionLoad(&req)
		case "session/prompt":
			s.prompts.Add(1)
			go func() {
				defer s.prompts.Done()
				s.handleSessionPrompt(&req)
			}()
		case "session/cancel":
			s.handleSessionCancel(&req)
		default:
			if req.ID != nil {
				_ = s.writeResponseError(req.ID, codeMethodNotFound, "Method not found", nil)
			}
		}
	}
}

// jsonrpcRequest represents a JSON-RPC 2.0 request or notification.
type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// jsonrpcResponse represents a JSON-RPC 2.0 response message.
type jsonrpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *jsonrpcError   `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// session is one client conversation backed by its own agent. Prompts on a
// session run one at a time.
type session struct {
	id    string
	agent *agent.Agent
	run   sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
}

func (ss *session) setCancel(cancel context.CancelFunc) {
	ss.mu.Lock()
	ss.cancel = cancel
	ss.mu.Unlock()
}

func (ss *session) stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	if ss.cancel != nil {
		ss.cancel()
	}
}

type acpServer struct {
	ctx      context.Context
	newAgent Factory

	sessionsLock sync.Mutex
	sessions     map[string]*session
	prompts      sync.WaitGroup

	in        *bufio.Reader
	writeLock sync.Mutex
	out       *bufio.Writer
	log       *slog.Logger
}

// readFramedMessage reads a single newline-delimited JSON-RPC payload.
func (s *acpServer) readFramedMessage() ([]byte, error) {
	line, err := s.in.ReadBytes('\n')
	if err == io.EOF && len(line) > 0 {
		return line, nil
	}
	return line, err
}

// writeFramedJSON serializes obj and writes it followed by a newline.
func (s *acpServer) writeFramedJSON(obj any) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize JSON-RPC message")
	}
	s.log.Debug("write", "message", string(data))

	s.writeLock.Lock()
	defer s.writeLock.Unlock()
	if _, err := s.out.Write(data); err != nil {
		return err
	}
	if err := s.out.WriteByte('\n'); err != nil {
		return err
	}
	return s.out.Flush()
}

func (s *acpServer) writeResponseOK(id any, result any) error {
	raw, err := json.Marshal(result)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize result")
	}
	return s.writeFramedJSON(jsonrpcResponse{JSONRPC: "2.0", ID: id, Result: raw})
}

func (s *acpServer) writeResponseError(id any, code int, msg string, data any) error {
	s.log.Debug("error response", "code", code, "message", msg, "data", data)
	return s.writeFramedJSON(jsonrpcResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &jsonrpcError{Code: code, Message: msg, Data: data},
	})
}

// writeNotification sends a JSON-RPC notification (a request without an id).
func (s *acpServer) writeNotification(method string, params any) error {
	return s.writeFramedJSON(map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
	})
}

func decodeParams(req *jsonrpcRequest, v any) error {
	if len(req.Params) == 0 {
		return nil
	}
	return json.Unmarshal(req.Params, v)
}

func (s *acpServer) lookup(id string) (*session, bool) {
	s.sessionsLock.Lock()
	defer s.sessionsLock.Unlock()
	ss, ok := s.sessions[id]
	return ss, ok
}

// handleInitialize answers with the protocol version and agent capabilities.
func (s *acpServer) handleInitialize(req *jsonrpcRequest) {
	var p struct {
		ProtocolVersion int             `json:"protocolVersion"`
		ClientCaps      json.RawMessage `json:"clientCapabilities,omitempty"`
	}
	if err := decodeParams(req, &p); err != nil {
		_ = s.writeResponseError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}
	s.log.Debug("initialize", "clientProtocolVersion", p.ProtocolVersion)

	_ = s.writeResponseOK(req.ID, map[string]any{
		"protocolVersion": 1,
		"agentCapabilities": map[string]any{
			"loadSession": true,
			"promptCapabilities": map[string]bool{
				"audio":           false,
				"embeddedContext": false,
				"image":           false,
			},
		},
		"authMethods": []any{},
	})
}

// handleSessionNew creates a session with a fresh agent and returns its id.
func (s *acpServer) handleSessionNew(req *jsonrpcRequest) {
	var p struct {
		Cwd        string          `json:"cwd"`
		McpServers json.RawMessage `json:"mcpServers"`
	}
	if err := decodeParams(req, &p); err != nil {
		_ = s.writeResponseError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}

	a, err := s.newAgent(p.Cwd)
	if err != nil {
		_ = s.writeResponseError(req.ID, codeInternalError, "Internal error", fmt.Sprintf("failed to create session: %v", err))
		return
	}
	ss := &session{id: "sess_" + uuid.NewString(), agent: a}

	s.sessionsLock.Lock()
	s.sessions[ss.id] = ss
	s.sessionsLock.Unlock()

	s.log.Debug("session created", "session", ss.id, "cwd", p.Cwd)
	_ = s.writeResponseOK(req.ID, map[string]any{"sessionId": ss.id})
}

// handleSessionLoad replays the history of a session created earlier by this
// server, then answers null. Sessions do not outlive the process.
func (s *acpServer) handleSessionLoad(req *jsonrpcRequest) {
	var p struct {
		SessionID  string          `json:"sessionId"`
		Cwd        string          `json:"cwd"`
		McpServers json.RawMessage `json:"mcpServers"`
	}
	if err := decodeParams(req, &p); err != nil {
		_ = s.writeResponseError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}
	ss, ok := s.lookup(p.SessionID)
	if !ok {
		_ = s.writeResponseError(req.ID, codeInvalidParams, "Invalid params", fmt.Sprintf("session not found: %s", p.SessionID))
		return
	}

	ss.run.Lock()
	msgs := ss.agent.Messages()
	ss.run.Unlock()

	var callID string
	for _, m := range msgs {
		switch m.Role {
		case conversation.RoleUser:
			if text, ok := conversation.ParseToolResult(m); ok {
				_ = s.sendToolResult(ss.id, callID, text)
				continue
			}
			_ = s.sendUpdate(ss.id, "user_message_chunk", m.Content)
		case conversation.RoleAssistant:
			if name, args, ok := conversation.ParseToolCall(m); ok {
				callID = newCallID()
				_ = s.sendToolCall(ss.id, callID, name, args)
				continue
			}
			_ = s.sendUpdate(ss.id, "agent_message_chunk", m.Content)
		}
	}
	_ = s.writeResponseOK(req.ID, nil)
}

// contentBlock represents a content block in ACP prompt requests. Only text
// and resource_link blocks are understood.
type contentBlock struct {
	Type        string `json:"type"`
	Text        string `json:"text,omitempty"`
	URI         string `json:"uri,omitempty"`
	Name        string `json:"name,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Size        *int64 `json:"size,omitempty"`
}

// handleSessionPrompt runs one agent turn, streaming its events as
// session/update notifications, and answers with a stop reason.
func (s *acpServer) handleSessionPrompt(req *jsonrpcRequest) {
	var p struct {
		SessionID string         `json:"sessionId"`
		Prompt    []contentBlock `json:"prompt"`
	}
	if err := decodeParams(req, &p); err != nil {
		_ = s.writeResponseError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}
	ss, ok := s.lookup(p.SessionID)
	if !ok {
		_ = s.writeResponseError(req.ID, codeInvalidParams, "Invalid params", "unknown sessionId")
		return
	}
	userText := extractUserText(p.Prompt)
	if userText == "" {
		_ = s.writeResponseError(req.ID, codeInvalidParams, "Invalid params", "prompt has no text")
		return
	}

	ss.run.Lock()
	defer ss.run.Unlock()

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	ss.setCancel(cancel)
	defer ss.setCancel(nil)

	res := ss.agent.Run(ctx, userText, s.sessionSink(ss.id))
	s.log.Debug("prompt finished", "session", ss.id, "status", res.Status, "steps", res.Steps)

	if res.Status == agent.StatusFailed {
		_ = s.writeResponseError(req.ID, codeInternalError, "Internal error", "agent failed to complete after retries")
		return
	}
	_ = s.writeResponseOK(req.ID, map[string]any{"stopReason": stopReason(res.Status)})
}

// handleSessionCancel aborts the running prompt of a session, if any.
func (s *acpServer) handleSessionCancel(req *jsonrpcRequest) {
	var p struct {
		SessionID string `json:"sessionId"`
	}
	if err := decodeParams(req, &p); err != nil {
		return
	}
	if ss, ok := s.lookup(p.SessionID); ok {
		s.log.Debug("cancelling prompt", "session", ss.id)
		ss.stop()
	}
}

// sessionSink maps agent events onto session/update notifications. Tool
// results are paired with the id of the preceding tool call.
func (s *acpServer) sessionSink(sessionID string) agent.Sink {
	var callID string
	return agent.SinkFunc(func(e agent.Event) {
		switch e.Kind {
		case agent.EventToolCall:
			callID = newCallID()
			_ = s.sendToolCall(sessionID, callID, e.Name, e.Args)
		case agent.EventToolResult:
			_ = s.sendToolResult(sessionID, callID, e.Text)
		case agent.EventFinalResponse:
			_ = s.sendUpdate(sessionID, "agent_message_chunk", e.Text)
		case agent.EventThinking, agent.EventError, agent.EventVisionAnalysis:
			_ = s.sendUpdate(sessionID, "agent_thought_chunk", e.String())
		}
	})
}

func stopReason(st agent.Status) string {
	switch st {
	case agent.StatusMaxSteps:
		return "max_turn_requests"
	case agent.StatusCancelled:
		return "cancelled"
	default:
		return "end_turn"
	}
}

func newCallID() string { return "call_" + uuid.NewString() }

// sendUpdate emits a text chunk update of the given kind.
func (s *acpServer) sendUpdate(sessionID, kind, text string) error {
	return s.writeNotification("session/update", map[string]any{
		"sessionId": sessionID,
		"update": map[string]any{
			"sessionUpdate": kind,
			"content": map[string]any{
				"type": "text",
				"text": text,
			},
		},
	})
}

func (s *acpServer) sendToolCall(sessionID, callID, name, args string) error {
	return s.writeNotification("session/update", map[string]any{
		"sessionId": sessionID,
		"update": map[string]any{
			"sessionUpdate": "tool_call",
			"toolCall": map[string]any{
				"id":   callID,
				"name": name,
				"args": args,
			},
		},
	})
}

func (s *acpServer) sendToolResult(sessionID, callID, result string) error {
	return s.writeNotification("session/update", map[string]any{
		"sessionId": sessionID,
		"update": map[string]any{
			"sessionUpdate": "tool_result",
			"toolResult": map[string]any{
				"toolCallId": callID,
				"result":     result,
			},
		},
	})
}

// readFileFromURI reads file contents from a file:// URI.
func readFileFromURI(uri string) (string, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return "", errors.New("invalid URI: %v", err)
	}
	if parsed.Scheme != "file" {
		return "", errors.New("unsupported URI scheme: %s", parsed.Scheme)
	}
	content, err := os.ReadFile(parsed.Path)
	if err != nil {
		return "", errors.New("failed to read file: %v", err)
	}
	return string(content), nil
}

// extractUserText joins text blocks and inlines resource links into a single
// prompt string.
func extractUserText(blocks []contentBlock) string {
	var parts []string
	for _, b := range blocks {
		switch b.Type {
		case "text":
			if strings.TrimSpace(b.Text) != "" {
				parts = append(parts, b.Text)
			}
		case "resource_link":
			parts = append(parts, describeResource(b))
		}
	}
	return strings.Join(parts, "\n")
}

func describeResource(b contentBlock) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "=== Resource: %s ===\n", b.Name)
	if b.Title != "" {
		fmt.Fprintf(&sb, "Title: %s\n", b.Title)
	}
	if b.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", b.Description)
	}
	fmt.Fprintf(&sb, "URI: %s\n", b.URI)
	if b.MimeType != "" {
		fmt.Fprintf(&sb, "Type: %s\n", b.MimeType)
	}
	if b.Size != nil {
		fmt.Fprintf(&sb, "Size: %d bytes\n", *b.Size)
	}

	if strings.HasPrefix(b.URI, "file://") {
		content, err := readFileFromURI(b.URI)
		if err != nil {
			fmt.Fprintf(&sb, "\n[Error reading file: %v]\n", err)
		} else {
			if len(content) > maxContentSize {
				content = content[:maxContentSize] + "\n\n[... truncated to 50KB ...]"
			}
			fmt.Fprintf(&sb, "\n--- File Contents ---\n%s\n--- End of File ---\n", content)
		}
	} else {
		sb.WriteString("\n[External resource - content not available]\n")
	}
	sb.WriteString("=== End Resource ===\n")
	return sb.String()
}
