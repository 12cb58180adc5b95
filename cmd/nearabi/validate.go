package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nearabi/nearabi/validate"
)

func newValidateCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <abi-file>",
		Short: "Check an ABI document against the ABI schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, gf, args[0])
			if err != nil {
				return err
			}
			defer e.close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			v, err := validate.New()
			if err != nil {
				return err
			}
			diags, err := v.ValidateBytes(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			e.out.Diagnostics(diags)
			if validate.HasErrors(diags) {
				e.out.Errorf("%s is not a valid ABI", args[0])
				return errSilent
			}
			e.out.Successf("%s is valid", args[0])
			return nil
		},
	}
}
