package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/m4xw311/pengy/bridge"
	"github.com/m4xw311/pengy/profile"
)

func newServeCmd() *cobra.Command {
	var (
		addr        string
		profileName string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Stream agent runs over WebSocket",
		Long: `Serve agents on ws://<addr>/ws. Clients send JSON requests
({"type":"prompt","text":"..."}, {"type":"pipeline","text":"..."} or
{"type":"cancel"}) and receive every agent event as a JSON frame.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
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
			if _, err := profile.Get(profileName); err != nil {
				return err
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "WebSocket server running on ws://%s/ws\n", displayAddr(addr))
			return bridge.New(b.Build, profileName).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringVarP(&profileName, "profile", "p", profile.Coder, "Default profile for prompts: "+strings.Join(profile.Names(), ", "))
	return cmd
}

func displayAddr(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return addr
}
