package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRecoverCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "recover",
		Short: "Back up unreadable stored expenses and reset them to empty",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backup, err := a.session.Tab.RecoverLedger(cmd.Context())
			if err != nil {
				return err
			}
			if backup == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "Stored expenses are readable; nothing to do.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Unreadable expenses saved under %q and reset.\n", backup)
			return nil
		},
	}
}
