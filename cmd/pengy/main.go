package main

import (
	"context"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/m4xw311/pengy/logger"
)

// Version set via ldflags during build
var version = "dev"

func main() {
	defer func() { _ = logger.Close() }()

	if err := fang.Execute(context.Background(), newRootCmd(), fang.WithVersion(version)); err != nil {
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

var rootFlags struct {
	logLevel string
	logFile  string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "pengy",
		Short: "Tool-calling coding agent",
		Long: `pengy runs LLM agents that work on the current directory through tools.

An agent steps through tool calls until it gives a final answer. Profiles
(coder, researcher, tester, ...) choose the tools and system prompt; the
pipeline command chains research, implementation and testing agents.

Configuration is read from ~/.pengy/config.yaml and ./.pengy/config.yaml.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&rootFlags.logLevel, "log-level", "", "Log level: debug, info, warn or error (default: from config)")
	root.PersistentFlags().StringVar(&rootFlags.logFile, "log-file", "", "Write logs to this file (default: from config)")

	root.AddCommand(newRunCmd())
	root.AddCommand(newPipelineCmd())
	root.AddCommand(newToolsCmd())
	root.AddCommand(newACPCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newInitCmd())
	return root
}
