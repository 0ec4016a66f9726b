package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/m4xw311/pengy/agent"
	"github.com/m4xw311/pengy/agent/acp"
	"github.com/m4xw311/pengy/errors"
	"github.com/m4xw311/pengy/logger"
	"github.com/m4xw311/pengy/profile"
)

func newACPCmd() *cobra.Command {
	var (
		profileName string
		trace       bool
	)
	cmd := &cobra.Command{
		Use:   "acp",
		Short: "Serve the Agent Client Protocol over stdio",
		Long: `Serve the Agent Client Protocol (JSON-RPC over stdio) so editors such as
Zed can drive pengy agents. Only protocol messages are written to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext(cmd.Context())
			defer stop()

			rt, err := newRuntime(ctx)
			if err != nil {
				return err
			}
			defer rt.Close()
			if trace {
				logger.Default.SetLevel(logger.LevelDebug)
				if err := logger.Default.OpenFile("acp.trace"); err != nil {
					return errors.Wrapf(err, "could not open trace file")
				}
			}

			factory := func(cwd string) (*agent.Agent, error) {
				b, err := rt.builder(ctx, cwd)
				if err != nil {
					return nil, err
				}
				return b.Build(profileName)
			}
			if err := acp.Run(ctx, factory, cmd.InOrStdin(), cmd.OutOrStdout()); err != nil {
				return errors.Wrapf(err, "ACP mode failed")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&profileName, "profile", "p", profile.Coder, "Agent profile: "+strings.Join(profile.Names(), ", "))
	cmd.Flags().BoolVar(&trace, "trace", false, "Write a debug trace to ./acp.trace")
	return cmd
}
