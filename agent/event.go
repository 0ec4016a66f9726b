package agent

import (
	"fmt"

	"github.com/m4xw311/pengy/errors"
)

// EventKind identifies what an Event reports.
type EventKind int

const (
	EventStep EventKind = iota + 1
	EventToolCall
	EventToolResult
	EventThinking
	EventFinalResponse
	EventError
	EventVisionAnalysis
)

func (k EventKind) String() string {
	switch k {
	case EventStep:
		return "step"
	case EventToolCall:
		return "tool_call"
	case EventToolResult:
		return "tool_result"
	case EventThinking:
		return "thinking"
	case EventFinalResponse:
		return "final_response"
	case EventError:
		return "error"
	case EventVisionAnalysis:
		return "vision_analysis"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(b []byte) error {
	for c := EventStep; c <= EventVisionAnalysis; c++ {
		if c.String() == string(b) {
			*k = c
			return nil
		}
	}
	return errors.New("unknown event kind '%s'", b)
}

// Event is one progress notification. Only the fields for its Kind are set:
// Step and MaxSteps for EventStep, Name and Args for EventToolCall, Text for
// everything else.
type Event struct {
	Kind     EventKind `json:"kind"`
	Step     int       `json:"step,omitempty"`
	MaxSteps int       `json:"max_steps,omitempty"`
	Name     string    `json:"name,omitempty"`
	Args     string    `json:"args,omitempty"`
	Text     string    `json:"text,omitempty"`
}

func StepEvent(step, max int) Event { return Event{Kind: EventStep, Step: step, MaxSteps: max} }

func ToolCallEvent(name, args string) Event { return Event{Kind: EventToolCall, Name: name, Args: args} }

func ToolResultEvent(text string) Event { return Event{Kind: EventToolResult, Text: text} }

func ThinkingEvent(text string) Event { return Event{Kind: EventThinking, Text: text} }

func FinalResponseEvent(text string) Event { return Event{Kind: EventFinalResponse, Text: text} }

func ErrorEvent(text string) Event { return Event{Kind: EventError, Text: text} }

func VisionEvent(status string) Event { return Event{Kind: EventVisionAnalysis, Text: status} }

func (e Event) String() string {
	switch e.Kind {
	case EventStep:
		return fmt.Sprintf("Step %d/%d", e.Step, e.MaxSteps)
	case EventToolCall:
		return fmt.Sprintf("Tool call: %s(%s)", e.Name, e.Args)
	case EventToolResult:
		return "Tool result: " + e.Text
	case EventThinking:
		return "Thinking: " + e.Text
	case EventFinalResponse:
		return e.Text
	case EventError:
		return "Error: " + e.Text
	case EventVisionAnalysis:
		return "Vision: " + e.Text
	default:
		return e.Text
	}
}
