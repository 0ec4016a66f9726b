package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/conversation"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/tools"
)

const (
	summarizerToolName = "summarizer"

	visionProbe             = "here's the summary of this image"
	visionUnavailableNotice = "Oh no, we can't see the image right now. The current model doesn't support vision capabilities. Configure a vision-capable model to analyze images."

	summarySystemPrompt = "You are a helpful assistant that summarizes conversations concisely."
	summaryRequest      = "Please provide a concise summary of the following conversation. Focus on key decisions, actions taken, and important context. Keep it brief but informative:\n\n"
	summaryFallback     = "Summary: Previous conversation context"
)

// Executor performs one protocol step: it returns messages extended by exactly
// one tool-call/tool-result pair or one final answer. *llm.Model implements it.
type Executor interface {
	Complete(ctx context.Context, messages []conversation.Message, available []tools.Tool) ([]conversation.Message, error)
}

// Vision summarizes an image given as a data URL.
type Vision interface {
	SupportsVision() bool
	DescribeImage(ctx context.Context, system, probe, dataURL string) (string, error)
}

// Status is how a run ended.
type Status int

const (
	StatusCompleted Status = iota
	StatusMaxSteps
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusMaxSteps:
		return "max_steps"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result summarizes a finished run. FinalResponse is set only for
// StatusCompleted.
type Result struct {
	Status        Status
	FinalResponse string
	Steps         int
}

// Agent owns a conversation and a tool set and drives executor steps until a
// final answer, the step budget, or retry exhaustion.
type Agent struct {
	executor Executor
	vision   Vision
	tools    []tools.Tool

	maxStep  int
	maxRetry int
	backoff  func(attempt int) time.Duration
	log      *slog.Logger

	mu   sync.Mutex
	conv *conversation.Conversation
	// index of the last image result already summarized
	visionSeen int
}

type Option func(*Agent)

// WithMaxStep bounds executor calls per Run. Values below 1 are ignored.
func WithMaxStep(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxStep = n
		}
	}
}

// WithMaxRetry sets the number of attempts per step. Values below 1 are ignored.
func WithMaxRetry(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxRetry = n
		}
	}
}

// WithBackoff replaces the delay taken after failed attempt k.
func WithBackoff(f func(attempt int) time.Duration) Option {
	return func(a *Agent) {
		if f != nil {
			a.backoff = f
		}
	}
}

// WithVision sets the image summarizer. By default the executor is used when
// it implements Vision.
func WithVision(v Vision) Option {
	return func(a *Agent) { a.vision = v }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) {
		if l != nil {
			a.log = l
		}
	}
}

// LinearBackoff waits 100ms times the attempt number.
func LinearBackoff(attempt int) time.Duration {
	return time.Duration(attempt) * 100 * time.Millisecond
}

func New(executor Executor, available []tools.Tool, systemPrompt string, opts ...Option) *Agent {
	a := &Agent{
		executor: executor,
		tools:    available,
		maxStep:  config.DefaultMaxStep,
		maxRetry: config.DefaultMaxRetry,
		backoff:  LinearBackoff,
		log:      logger.Default.With("component", "agent"),
		conv:     conversation.New(systemPrompt),
	}
	if v, ok := executor.(Vision); ok {
		a.vision = v
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tools returns the agent's tool set.
func (a *Agent) Tools() []tools.Tool { return a.tools }

// Messages returns a copy of the conversation.
func (a *Agent) Messages() []conversation.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.conv.Messages()
}

// Run appends text as a user message and steps until the run ends. Every
// outcome is reported through sink; Run itself never fails. Calls on one
// Agent are serialized.
func (a *Agent) Run(ctx context.Context, text string, sink Sink) Result {
	if sink == nil {
		sink = Discard
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.conv.Append(conversation.NewMessage(conversation.RoleUser, text))

	for step := 1; step <= a.maxStep; step++ {
		sink.Emit(StepEvent(step, a.maxStep))
		a.log.Debug("step", "step", step, "max", a.maxStep, "messages", a.conv.Len())

		if dataURL, ok := a.pendingImage(); ok {
			a.describeImage(ctx, dataURL, sink)
		}
		if err := ctx.Err(); err != nil {
			return a.cancelled(step, err, sink)
		}

		unit, err := a.complete(ctx, sink)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return a.cancelled(step, ctxErr, sink)
			}
			return Result{Status: StatusFailed, Steps: step}
		}

		switch u := unit.(type) {
		case conversation.ToolCallUnit:
			sink.Emit(ToolCallEvent(u.Name, u.Args))
			sink.Emit(ToolResultEvent(u.Result))
			a.log.Debug("tool step", "tool", u.Name, "result_bytes", len(u.Result))
			if u.Name == summarizerToolName && u.Result == tools.SummarizeMarker {
				a.compact(ctx, sink)
			}
		case conversation.FinalAnswer:
			sink.Emit(FinalResponseEvent(u.Text))
			return Result{Status: StatusCompleted, FinalResponse: u.Text, Steps: step}
		}
	}

	sink.Emit(ErrorEvent(fmt.Sprintf("Reached maximum steps (%d)", a.maxStep)))
	a.log.Debug("step budget exhausted", "kind", errors.KindPolicy, "max", a.maxStep)
	return Result{Status: StatusMaxSteps, Steps: a.maxStep}
}

// complete calls the executor with retries. A reply that does not extend the
// conversation by one unit counts as a failed attempt.
func (a *Agent) complete(ctx context.Context, sink Sink) (conversation.Unit, error) {
	var lastErr error
	for attempt := 1; attempt <= a.maxRetry; attempt++ {
		next, err := a.executor.Complete(ctx, a.conv.Messages(), a.tools)
		if err == nil {
			unit, extErr := a.conv.Extend(next)
			if extErr == nil {
				return unit, nil
			}
			err = errors.Tag(errors.KindProtocol, extErr)
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		a.log.Debug("step attempt failed", "attempt", attempt, "max", a.maxRetry, "kind", errors.KindOf(err), "error", err)
		if attempt == a.maxRetry {
			break
		}
		sink.Emit(ErrorEvent(fmt.Sprintf("Error (retry %d/%d): %v", attempt, a.maxRetry, err)))
		if err := sleep(ctx, a.backoff(attempt)); err != nil {
			return nil, err
		}
	}
	sink.Emit(ErrorEvent(fmt.Sprintf("Error after %d retries: %v", a.maxRetry, lastErr)))
	sink.Emit(ErrorEvent("Failed to complete after retries"))
	return nil, lastErr
}

// pendingImage reports an image result that has not been summarized yet. Only
// a vision tool call in the latest assistant message counts.
func (a *Agent) pendingImage() (string, bool) {
	msgs := a.conv.Messages()
	for i := len(msgs) - 1; i > 0; i-- {
		if msgs[i].Role != conversation.RoleAssistant {
			continue
		}
		name, _, ok := conversation.ParseToolCall(msgs[i])
		if !ok || name != tools.VisionToolName || i+1 >= len(msgs) || i+1 <= a.visionSeen {
			return "", false
		}
		result, ok := conversation.ParseToolResult(msgs[i+1])
		if !ok || !strings.HasPrefix(result, tools.DataURLPrefix) {
			return "", false
		}
		a.visionSeen = i + 1
		return result, true
	}
	return "", false
}

func (a *Agent) describeImage(ctx context.Context, dataURL string, sink Sink) {
	sink.Emit(VisionEvent("Analyzing image..."))
	if a.vision == nil || !a.vision.SupportsVision() {
		sink.Emit(ErrorEvent("Vision not supported by the current model"))
		a.conv.Append(conversation.NewMessage(conversation.RoleUser, visionUnavailableNotice))
		return
	}

	summary, err := a.vision.DescribeImage(ctx, a.conv.SystemPrompt(), visionProbe, dataURL)
	switch {
	case err != nil && ctx.Err() != nil:
		// Cancellation is reported by the caller.
	case errors.KindOf(err) == errors.KindVisionUnavailable:
		sink.Emit(ErrorEvent("Vision not supported by the current model"))
		a.conv.Append(conversation.NewMessage(conversation.RoleUser, visionUnavailableNotice))
	case err != nil:
		sink.Emit(ErrorEvent(fmt.Sprintf("Failed to summarize image: %v", err)))
		a.conv.Append(conversation.NewMessage(conversation.RoleUser, fmt.Sprintf("Failed to summarize image: %v", err)))
	default:
		sink.Emit(VisionEvent("Image analyzed"))
		a.conv.Append(conversation.NewMessage(conversation.RoleUser, "Image summary: "+summary))
	}
}

// compact replaces the history with a model-written summary. On failure the
// conversation is left as it was.
func (a *Agent) compact(ctx context.Context, sink Sink) {
	summary, err := a.summarize(ctx)
	if err != nil {
		sink.Emit(ErrorEvent(fmt.Sprintf("Failed to summarize conversation: %v", err)))
		return
	}
	a.conv.Compact(summary)
	a.visionSeen = 0
	sink.Emit(ToolResultEvent("Conversation summarized successfully"))
}

func (a *Agent) summarize(ctx context.Context) (string, error) {
	last, hasLast := a.conv.LastUserInput()
	msgs := a.conv.Messages()
	var history []conversation.Message
	skipped := false
	for _, m := range msgs {
		if hasLast && !skipped && m.Role == conversation.RoleUser && m.Content == last {
			skipped = true
			continue
		}
		history = append(history, m)
	}

	transcript := conversation.Transcript(history)
	if transcript == "" {
		return summaryFallback, nil
	}

	request := []conversation.Message{
		conversation.NewMessage(conversation.RoleSystem, summarySystemPrompt),
		conversation.NewMessage(conversation.RoleUser, summaryRequest+transcript),
	}
	out, err := a.executor.Complete(ctx, request, nil)
	if err != nil {
		return "", err
	}
	if len(out) > len(request) {
		if text, ok := conversation.FinalAnswerText(out[len(request):]); ok {
			return text, nil
		}
	}
	return summaryFallback, nil
}

func (a *Agent) cancelled(step int, err error, sink Sink) Result {
	sink.Emit(ErrorEvent(fmt.Sprintf("Cancelled: %v", err)))
	return Result{Status: StatusCancelled, Steps: step}
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
