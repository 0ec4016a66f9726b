package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/m4xw311/pengy/profile"
	"github.com/m4xw311/pengy/tools"
)

func newToolsCmd() *cobra.Command {
	var profileName string
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		Long: `List every registered tool, or with --profile the tools that profile's
agent gets after config toolset overrides.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listTools(cmd, profileName)
		},
	}
	cmd.Flags().StringVarP(&profileName, "profile", "p", "", "Only list the tools of this profile")
	return cmd
}

func listTools(cmd *cobra.Command, profileName string) error {
	ctx := cmd.Context()
	rt, err := newRuntime(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()

	var set []tools.Tool
	if profileName != "" {
		b := &profile.Builder{Config: rt.cfg, Workspace: rt.workspace(""), Providers: rt.providers}
		if set, err = b.Tools(profileName); err != nil {
			return err
		}
	} else {
		reg := tools.NewDefaultRegistry(rt.workspace(""), rt.cfg)
		names := reg.Names()
		for _, p := range rt.providers {
			reg.RegisterProvider(p)
			names = append(names, p.Name()+".*")
		}
		if set, err = reg.Toolset(names); err != nil {
			return err
		}
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, t := range set {
		def := t.Definition()
		fmt.Fprintf(w, "%s\t%s\n", def.Name, firstLine(def.Description))
	}
	return w.Flush()
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
