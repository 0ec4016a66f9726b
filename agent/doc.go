// Package agent provides the bounded, retrying loop that turns single
// executor steps into a complete agent run.
//
// # Architecture
//
// The agent package is organized into three parts:
//
//   - Core loop (this package): the Agent type, its events and sinks
//   - Terminal subpackage (agent/terminal): renders events for a CLI
//   - ACP subpackage (agent/acp): serves agents over the Agent Client Protocol
//
// # Protocol
//
// An Agent owns a conversation whose first message is the system prompt. Each
// step hands the conversation and the tool set to an Executor, which must
// return it extended by exactly one unit: a tool-call/tool-result pair or a
// final answer (see package conversation for the encoding). The loop only
// inspects the messages appended by that step.
//
// # Usage
//
//	a := agent.New(model, toolset, systemPrompt,
//	    agent.WithMaxStep(cfg.MaxStep),
//	    agent.WithMaxRetry(cfg.MaxRetry),
//	)
//
//	q := agent.NewQueueSink()
//	go func() {
//	    defer q.Close()
//	    res := a.Run(ctx, "fix the failing test", q)
//	    _ = res.Status
//	}()
//	for ev := range q.Events() {
//	    fmt.Println(ev)
//	}
//
// # Events
//
// Run reports progress through a Sink, in order:
//
//   - EventStep at the start of every step
//   - EventVisionAnalysis and possibly EventError while an image result is summarized
//   - EventError for every failed attempt, then a fatal EventError when retries run out
//   - EventToolCall followed by EventToolResult after a tool step
//   - EventFinalResponse when the model answers
//   - EventError "Reached maximum steps (N)" when the budget is spent
//
// Run never returns an error. Its Result tells how the run ended.
//
// # Retries
//
// A failed executor call is retried up to the configured attempt count. After
// failed attempt k the loop sleeps 100ms*k (see WithBackoff). A reply that
// does not extend the conversation by one valid unit is treated like a failed
// call. The context is honored by the vision sub-call, the executor call and
// the backoff sleep.
//
// # Vision
//
// When the latest assistant message is a vision_judge call whose result is an
// image data URL, the next step first asks the Vision implementation for a
// text summary and appends it as a user message. Without vision support a
// notice is appended instead and the run continues.
//
// # Compaction
//
// When the summarizer tool returns its marker, the loop asks the executor for
// a summary of the conversation (without tools) and replaces the history with
// the system prompt, the summary and the latest user input.
package agent
