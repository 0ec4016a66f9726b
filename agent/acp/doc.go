// Package acp implements Agent Client Protocol support for Pengy, so editors
// such as Zed can drive an agent with newline-delimited JSON-RPC over stdio.
//
// Each session/new builds a fresh agent through a Factory. A prompt runs one
// agent turn and its events are streamed back as session/update
// notifications: tool calls as tool_call, tool outputs as tool_result, the
// final answer as agent_message_chunk and everything else as
// agent_thought_chunk.
package acp
