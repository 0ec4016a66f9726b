// Package pipeline chains three agents (research, implementation, testing)
// into one run, threading each stage's final answer into the next prompt.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m4xw311/pengy/agent"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/profile"
	"github.com/m4xw311/pengy/prompt"
)

// Placeholders stand in for a stage that produced no final answer.
const (
	ResearchPlaceholder       = "Research completed but no final report was generated."
	ImplementationPlaceholder = "Code implementation completed."
	TestingPlaceholder        = "Testing completed."
)

// Factory builds a fresh agent for a profile name. (*profile.Builder).Build
// satisfies it.
type Factory func(profile string) (*agent.Agent, error)

type stage struct {
	banner      string
	profile     string
	label       string
	placeholder string
}

var (
	researchStage = stage{
		banner:      "=== PHASE 1: Code Research ===",
		profile:     profile.Researcher,
		label:       "Research Report Generated",
		placeholder: ResearchPlaceholder,
	}
	implementationStage = stage{
		banner:      "=== PHASE 2: Code Implementation ===",
		profile:     profile.Coder,
		label:       "Implementation Summary",
		placeholder: ImplementationPlaceholder,
	}
	testingStage = stage{
		banner:      "=== PHASE 3: Testing ===",
		profile:     profile.Tester,
		label:       "Test Results",
		placeholder: TestingPlaceholder,
	}
)

// Pipeline runs the stages strictly one after another.
type Pipeline struct {
	factory Factory
	history string
	log     *slog.Logger
}

type Option func(*Pipeline)

// WithHistory adds earlier conversation text to every stage prompt.
func WithHistory(history string) Option {
	return func(p *Pipeline) { p.history = history }
}

func New(factory Factory, opts ...Option) *Pipeline {
	p := &Pipeline{factory: factory, log: logger.Default.With("component", "pipeline")}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes the three stages and returns the combined report. A stage
// that fails is replaced by its placeholder and the next stage still runs.
func (p *Pipeline) Run(ctx context.Context, request string, sink agent.Sink) string {
	if sink == nil {
		sink = agent.Discard
	}
	sink.Emit(agent.ThinkingEvent("=== PENGY AGENT: Starting Orchestration ==="))

	research := p.runStage(ctx, researchStage, prompt.Research(request, p.history), sink)
	implementation := p.runStage(ctx, implementationStage, prompt.Implementation(request, research, p.history), sink)
	testing := p.runStage(ctx, testingStage, prompt.Testing(request, research, implementation, p.history), sink)

	return Report(research, implementation, testing)
}

func (p *Pipeline) runStage(ctx context.Context, s stage, seed string, sink agent.Sink) string {
	sink.Emit(agent.ThinkingEvent(s.banner))

	artifact := s.placeholder
	if ctx.Err() != nil {
		sink.Emit(agent.ErrorEvent(fmt.Sprintf("Skipping %s stage: %v", s.profile, ctx.Err())))
	} else if a, err := p.factory(s.profile); err != nil {
		sink.Emit(agent.ErrorEvent(fmt.Sprintf("Failed to start %s agent: %v", s.profile, err)))
	} else {
		res := a.Run(ctx, seed, sink)
		p.log.Debug("stage finished", "profile", s.profile, "status", res.Status, "steps", res.Steps)
		if res.Status == agent.StatusCompleted {
			artifact = res.FinalResponse
		}
	}

	sink.Emit(agent.ThinkingEvent(fmt.Sprintf("%s:\n%s", s.label, artifact)))
	return artifact
}

// Report joins the three stage artifacts under their headers.
func Report(research, implementation, testing string) string {
	return fmt.Sprintf("=== PENGY AGENT: Complete Workflow Summary ===\n\n"+
		"PHASE 1 - RESEARCH:\n%s\n\n"+
		"PHASE 2 - IMPLEMENTATION:\n%s\n\n"+
		"PHASE 3 - TESTING:\n%s\n\n"+
		"=== Workflow Complete ===", research, implementation, testing)
}
