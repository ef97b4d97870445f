package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"spendsync/internal/core"
)

func newProfileCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or replace the user profile",
	}
	cmd.AddCommand(newProfileGetCommand(a), newProfileSetCommand(a))
	return cmd
}

func newProfileGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "Show the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, ok := a.session.Tab.Profile()
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), map[string]any{"profile": p, "exists": ok})
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "No profile set.")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Name: %s\nMonthly salary: %s\n", p.Name, a.money(p.MonthlySalary))
			return nil
		},
	}
}

// newProfileSetCommand replaces the whole profile: an omitted flag is stored empty.
func newProfileSetCommand(a *app) *cobra.Command {
	var name, salary string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace the profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := core.Profile{Name: name}
			if salary != "" {
				amount, err := core.ParseAmount(salary)
				if err != nil {
					return err
				}
				p.MonthlySalary = amount
			}
			if err := a.session.Tab.UpdateProfile(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Profile updated.")
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&salary, "salary", "", "monthly salary, e.g. 3000")

	return cmd
}
