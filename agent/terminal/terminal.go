package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/m4xw311/pengy/agent"
	"github.com/m4xw311/pengy/errors"
)

// Verbosity controls how much tool traffic is printed.
type Verbosity int

const (
	// VerbosityNone hides tool calls and results.
	VerbosityNone Verbosity = iota
	// VerbosityInfo shows tool names only.
	VerbosityInfo
	// VerbosityAll shows names, arguments and results.
	VerbosityAll
)

// maxResultChars bounds how much of a tool result is echoed at VerbosityAll.
const maxResultChars = 2000

func ParseVerbosity(s string) (Verbosity, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return VerbosityNone, nil
	case "info":
		return VerbosityInfo, nil
	case "all":
		return VerbosityAll, nil
	default:
		return VerbosityNone, errors.New("invalid verbosity '%s' (want none, info or all)", s)
	}
}

// Renderer prints agent events. It implements agent.Sink.
type Renderer struct {
	out       io.Writer
	verbosity Verbosity
	styles    styles
}

func NewRenderer(w io.Writer, v Verbosity) *Renderer {
	return &Renderer{out: w, verbosity: v, styles: newStyles(w)}
}

func (r *Renderer) Emit(e agent.Event) {
	s := r.styles
	switch e.Kind {
	case agent.EventStep:
		if r.verbosity == VerbosityAll {
			r.println(s.step.Render(fmt.Sprintf("[step %d/%d]", e.Step, e.MaxSteps)))
		}
	case agent.EventToolCall:
		switch r.verbosity {
		case VerbosityAll:
			r.println(s.toolCall.Render(fmt.Sprintf("Pengy calls tool `%s` with args: %s", e.Name, e.Args)))
		case VerbosityInfo:
			r.println(s.toolCall.Render(fmt.Sprintf("Pengy calls tool `%s`", e.Name)))
		}
	case agent.EventToolResult:
		if r.verbosity == VerbosityAll {
			r.println(s.result.Render("Tool output: " + clip(e.Text, maxResultChars)))
		}
	case agent.EventThinking:
		r.println(s.thinking.Render(e.Text))
	case agent.EventFinalResponse:
		r.println(s.answer.Render("Pengy: " + e.Text))
	case agent.EventError:
		r.println(s.err.Render("Error: " + e.Text))
	case agent.EventVisionAnalysis:
		if r.verbosity != VerbosityNone {
			r.println(s.vision.Render("Vision: " + e.Text))
		}
	}
}

func (r *Renderer) println(s string) {
	fmt.Fprintln(r.out, s)
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + fmt.Sprintf("... (%d more characters)", len(runes)-max)
}

// Runner is anything that can take one user turn; *agent.Agent is one.
type Runner interface {
	Run(ctx context.Context, text string, sink agent.Sink) agent.Result
}

// Terminal handles the terminal/CLI interaction mode for the agent
type Terminal struct {
	runner   Runner
	in       io.Reader
	out      io.Writer
	renderer *Renderer
}

// New creates a new Terminal instance
func New(r Runner, in io.Reader, out io.Writer, v Verbosity) *Terminal {
	return &Terminal{
		runner:   r,
		in:       in,
		out:      out,
		renderer: NewRenderer(out, v),
	}
}

// Run starts the interactive session. An initial prompt, if any, is processed
// first. The session ends on EOF, /quit or /exit.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	if initialPrompt != "" {
		t.Turn(ctx, initialPrompt)
	}

	scanner := bufio.NewScanner(t.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(t.out, t.renderer.styles.prompt.Render("You: "))
		if !scanner.Scan() {
			// EOF or read error ends the session
			break
		}

		userInput := strings.TrimSpace(scanner.Text())
		if userInput == "" {
			continue
		}
		if userInput == "/quit" || userInput == "/exit" {
			break
		}
		t.Turn(ctx, userInput)
		if ctx.Err() != nil {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return errors.Wrapf(err, "failed to read input")
	}
	return nil
}

// Turn runs one user turn. The agent runs on its own goroutine and events are
// rendered here as they arrive.
func (t *Terminal) Turn(ctx context.Context, text string) agent.Result {
	q := agent.NewQueueSink()
	done := make(chan agent.Result, 1)
	go func() {
		defer q.Close()
		done <- t.runner.Run(ctx, text, q)
	}()
	for e := range q.Events() {
		t.renderer.Emit(e)
	}
	return <-done
}
