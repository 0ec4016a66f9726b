package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/m4xw311/pengy/config"
	"github.com/m4xw311/pengy/errors"
)

func newInitCmd() *cobra.Command {
	var (
		global bool
		force  bool
	)
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var path string
			if global {
				home, err := os.UserHomeDir()
				if err != nil {
					return errors.Wrapf(err, "could not find home directory")
				}
				path = config.GlobalPath(home)
			} else {
				wd, err := os.Getwd()
				if err != nil {
					return errors.Wrapf(err, "could not get working directory")
				}
				path = config.ProjectPath(wd)
			}

			if _, err := os.Stat(path); err == nil && !force {
				return errors.New("%s already exists (use --force to overwrite)", path)
			}
			if err := config.WriteDefault(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&global, "global", false, "Write ~/.pengy/config.yaml instead of ./.pengy/config.yaml")
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file")
	return cmd
}
