package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m4xw311/pengy/agent"
	"github.com/m4xw311/pengy/agent/terminal"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/profile"
)

type runOptions struct {
	profile   string
	verbosity string
	once      bool
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run [prompt...]",
		Short: "Chat with a single agent",
		Long: `Start an interactive session with one agent profile.

Any arguments form the first prompt. With --once the agent answers that
prompt and the command exits; the exit status reflects whether a final
answer was produced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAgent(cmd, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVarP(&opts.profile, "profile", "p", profile.Coder, "Agent profile: "+strings.Join(profile.Names(), ", "))
	cmd.Flags().StringVarP(&opts.verbosity, "verbosity", "v", "info", "Tool output: none, info or all")
	cmd.Flags().BoolVar(&opts.once, "once", false, "Answer the prompt and exit")
	return cmd
}

func runAgent(cmd *cobra.Command, opts runOptions, prompt string) error {
	verbosity, err := terminal.ParseVerbosity(opts.verbosity)
	if err != nil {
		return err
	}
	if opts.once && prompt == "" {
		return errors.New("--once needs a prompt")
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	b, err := rt.builder(ctx, "")
	if err != nil {
		return err
	}
	a, err := b.Build(opts.profile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	term := terminal.New(a, cmd.InOrStdin(), out, verbosity)
	if opts.once {
		res := term.Turn(ctx, prompt)
		if res.Status != agent.StatusCompleted {
			return errors.New("agent stopped without an answer: %s", res.Status)
		}
		return nil
	}

	fmt.Fprintf(out, "Pengy (%s) is ready. Type your prompt.\n", opts.profile)
	return term.Run(ctx, prompt)
}
