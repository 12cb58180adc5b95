package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/nearabi/nearabi/internal/initcmd"
)

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a nearabi.ini with the default settings",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			_, err := initcmd.Execute(dir, initcmd.Options{Force: force, Output: cmd.ErrOrStderr()})
			return err
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing nearabi.ini")
	return cmd
}
