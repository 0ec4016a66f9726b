package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m4xw311/pengy/agent/terminal"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/pipeline"
)

type pipelineOptions struct {
	verbosity   string
	historyFile string
}

func newPipelineCmd() *cobra.Command {
	var opts pipelineOptions
	cmd := &cobra.Command{
		Use:   "pipeline <request...>",
		Short: "Research, implement and test a request",
		Long: `Run the research, implementation and testing agents one after another.

Each stage's final answer is passed to the next. The combined report is
printed when all three stages have finished.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, opts, strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVarP(&opts.verbosity, "verbosity", "v", "info", "Tool output: none, info or all")
	cmd.Flags().StringVar(&opts.historyFile, "history-file", "", "File with earlier conversation to include in every stage")
	return cmd
}

func runPipeline(cmd *cobra.Command, opts pipelineOptions, request string) error {
	verbosity, err := terminal.ParseVerbosity(opts.verbosity)
	if err != nil {
		return err
	}
	var popts []pipeline.Option
	if opts.historyFile != "" {
		history, err := os.ReadFile(opts.historyFile)
		if err != nil {
			return errors.Wrapf(err, "could not read history file")
		}
		popts = append(popts, pipeline.WithHistory(string(history)))
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

	out := cmd.OutOrStdout()
	report := pipeline.New(b.Build, popts...).Run(ctx, request, terminal.NewRenderer(out, verbosity))
	fmt.Fprintln(out, report)
	return ctx.Err()
}
