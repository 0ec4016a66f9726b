// Package terminal implements the command-line interaction mode for Pengy.
//
// Users type prompts, the agent runs each turn on its own goroutine, and its
// events are rendered as they arrive. Rendering goes through a Renderer, which
// also works as a plain agent.Sink for one-shot runs and for the pipeline.
//
// # Usage
//
//	a := agent.New(model, toolset, systemPrompt)
//	term := terminal.New(a, os.Stdin, os.Stdout, terminal.VerbosityInfo)
//	err := term.Run(ctx, initialPrompt)
//
// # Verbosity Levels
//
//   - None: only answers, thinking banners and errors are shown
//   - Info: tool names and vision progress are shown as well
//   - All: step counters, tool arguments and (clipped) results are shown
//
// # Commands
//
// /quit and /exit end the session, as does EOF on the input.
package terminal
