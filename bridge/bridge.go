// Package bridge exposes agents over WebSocket. A client sends JSON requests
// and receives every agent event of the resulting run as a JSON frame.
package bridge

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/m4xw311/pengy/agent"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/pipeline"
)

// Request types sent by clients.
const (
	RequestPrompt   = "prompt"
	RequestPipeline = "pipeline"
	RequestCancel   = "cancel"
)

// Frame types sent by the server.
const (
	FrameEvent = "event"
	FrameDone  = "done"
	FrameError = "error"
)

// maxMessageSize is the largest request frame accepted.
const maxMessageSize = 512 * 1024

const (
	readTimeout  = 60 * time.Second
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// Request is a client message. Profile selects the agent for prompt requests
// and defaults to the server's profile.
type Request struct {
	Type    string `json:"type"`
	Profile string `json:"profile,omitempty"`
	Text    string `json:"text,omitempty"`
}

// Frame is a server message. Event frames carry one agent event; a done frame
// closes a run with its status and final text.
type Frame struct {
	Type   string       `json:"type"`
	Run    string       `json:"run,omitempty"`
	Event  *agent.Event `json:"event,omitempty"`
	Status string       `json:"status,omitempty"`
	Text   string       `json:"text,omitempty"`
}

// Server upgrades HTTP requests on /ws and serves one client per connection.
// Agents live as long as their connection, one per profile, so follow-up
// prompts keep their conversation.
type Server struct {
	factory        pipeline.Factory
	defaultProfile string
	upgrader       websocket.Upgrader
	log            *slog.Logger
}

func New(factory pipeline.Factory, defaultProfile string) *Server {
	return &Server{
		factory:        factory,
		defaultProfile: defaultProfile,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: logger.Default.With("component", "bridge"),
	}
}

// Handler routes /ws to the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s)
	return mux
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade failed", "error", err)
		return
	}
	c := newClient(conn, s)
	s.log.Debug("client connected", "client", c.id, "remote", r.RemoteAddr)
	c.serve(r.Context())
	s.log.Debug("client disconnected", "client", c.id)
}

// ListenAndServe serves the bridge on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return errors.Wrapf(err, "bridge server failed")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// client is a single WebSocket connection.
type client struct {
	id     string
	conn   *websocket.Conn
	server *Server
	send   chan []byte
	closed chan struct{}

	agents map[string]*agent.Agent
	runs   sync.WaitGroup

	mu     sync.Mutex
	cancel context.CancelFunc
}

func newClient(conn *websocket.Conn, s *Server) *client {
	return &client{
		id:     uuid.NewString(),
		conn:   conn,
		server: s,
		send:   make(chan []byte, 256),
		closed: make(chan struct{}),
		agents: make(map[string]*agent.Agent),
	}
}

// serve runs the write pump and reads requests until the connection closes.
// Any active run is cancelled and awaited before returning.
func (c *client) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.writePump()

	c.readPump(ctx)

	c.stop()
	c.runs.Wait()
	close(c.send)
}

func (c *client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readTimeout))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.log.Warn("websocket read error", "client", c.id, "error", err)
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(readTimeout))

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendFrame(Frame{Type: FrameError, Text: "malformed request: " + err.Error()})
			continue
		}
		c.handle(ctx, req)
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		close(c.closed)
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) sendFrame(f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		c.server.log.Error("failed to encode frame", "error", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.closed:
	}
}

func (c *client) handle(ctx context.Context, req Request) {
	switch req.Type {
	case RequestCancel:
		c.stop()
	case RequestPrompt, RequestPipeline:
		if req.Text == "" {
			c.sendFrame(Frame{Type: FrameError, Text: "request has no text"})
			return
		}
		c.start(ctx, req)
	default:
		c.sendFrame(Frame{Type: FrameError, Text: "unknown request type '" + req.Type + "'"})
	}
}

// start launches a run unless one is already active on this connection.
func (c *client) start(ctx context.Context, req Request) {
	c.mu.Lock()
	if c.cancel != nil {
		c.mu.Unlock()
		c.sendFrame(Frame{Type: FrameError, Text: "a run is already in progress"})
		return
	}

	var a *agent.Agent
	if req.Type == RequestPrompt {
		profile := req.Profile
		if profile == "" {
			profile = c.server.defaultProfile
		}
		var err error
		if a, err = c.agentFor(profile); err != nil {
			c.mu.Unlock()
			c.sendFrame(Frame{Type: FrameError, Text: err.Error()})
			return
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	runID := uuid.NewString()
	sink := agent.SinkFunc(func(e agent.Event) {
		c.sendFrame(Frame{Type: FrameEvent, Run: runID, Event: &e})
	})

	c.runs.Add(1)
	go func() {
		defer c.runs.Done()
		done := c.run(runCtx, a, req.Text, sink)
		done.Run = runID
		c.finish(cancel)
		c.sendFrame(done)
	}()
}

// run executes one prompt on a, or the full pipeline when a is nil, and
// returns the closing frame.
func (c *client) run(ctx context.Context, a *agent.Agent, text string, sink agent.Sink) Frame {
	if a == nil {
		report := pipeline.New(c.server.factory).Run(ctx, text, sink)
		status := agent.StatusCompleted
		if ctx.Err() != nil {
			status = agent.StatusCancelled
		}
		return Frame{Type: FrameDone, Status: status.String(), Text: report}
	}
	res := a.Run(ctx, text, sink)
	c.server.log.Debug("run finished", "client", c.id, "status", res.Status, "steps", res.Steps)
	return Frame{Type: FrameDone, Status: res.Status.String(), Text: res.FinalResponse}
}

// agentFor returns the connection's agent for profile, building it on first
// use. Callers hold c.mu.
func (c *client) agentFor(profile string) (*agent.Agent, error) {
	if a, ok := c.agents[profile]; ok {
		return a, nil
	}
	a, err := c.server.factory(profile)
	if err != nil {
		return nil, err
	}
	c.agents[profile] = a
	return a, nil
}

func (c *client) finish(cancel context.CancelFunc) {
	cancel()
	c.mu.Lock()
	c.cancel = nil
	c.mu.Unlock()
}

func (c *client) stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
	}
}
