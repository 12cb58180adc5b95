package main

import (
	"github.com/spf13/cobra"

	"github.com/nearabi/nearabi/abistore"
)

func newHistoryCmd(gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect ABI documents recorded with generate --record",
	}
	cmd.AddCommand(newHistoryListCmd(gf), newHistoryShowCmd(gf))
	return cmd
}

func newHistoryListCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [name]",
		Short: "List recorded ABI documents",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, gf, ".")
			if err != nil {
				return err
			}
			defer e.close()

			store, err := abistore.Open(cmd.Context(), e.cfg.RegistryURL(), e.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			name := ""
			if len(args) == 1 {
				name = args[0]
			}
			entries, err := store.List(cmd.Context(), name)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				e.out.Info("No ABI documents recorded")
				return nil
			}

			rows := [][]string{{"Name", "Version", "Digest", "Recorded"}}
			for _, en := range entries {
				rows = append(rows, []string{
					en.Name,
					en.Version,
					shortDigest(en.Digest),
					en.CreatedAt.Format("2006-01-02 15:04:05"),
				})
			}
			return e.out.Table(rows)
		},
	}
}

func newHistoryShowCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name> [version]",
		Short: "Print the latest recorded ABI of a contract",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := newEnv(cmd, gf, ".")
			if err != nil {
				return err
			}
			defer e.close()

			store, err := abistore.Open(cmd.Context(), e.cfg.RegistryURL(), e.logger)
			if err != nil {
				return err
			}
			defer store.Close()

			ver := ""
			if len(args) == 2 {
				ver = args[1]
			}
			entry, err := store.Get(cmd.Context(), args[0], ver)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(entry.Document)
			return err
		},
	}
}
