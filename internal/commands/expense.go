package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spendsync/internal/core"
	"spendsync/internal/views"
)

func newAddCommand(a *app) *cobra.Command {
	var d core.Draft

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an expense",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loaded(); err != nil {
				return err
			}
			if d.Date == "" {
				d.Date = core.DateOf(time.Now()).String()
			}
			e, err := a.session.Tab.AddExpense(cmd.Context(), d)
			if err != nil {
				return err
			}
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), e)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s: %s %s on %s\n", e.ID, a.money(e.Amount), e.Category, e.Date)
			return nil
		},
	}

	cmd.Flags().StringVar(&d.Amount, "amount", "", "amount, e.g. 12.50 (required)")
	_ = cmd.MarkFlagRequired("amount")
	cmd.Flags().StringVar(&d.Category, "category", "", "one of food, transport, entertainment, bills, shopping, health, other (required)")
	_ = cmd.MarkFlagRequired("category")
	cmd.Flags().StringVar(&d.Date, "date", "", "date as YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&d.Description, "description", "", "free text, up to 200 characters")

	return cmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an expense by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loaded(); err != nil {
				return err
			}
			if err := a.session.Tab.DeleteExpense(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	var period, category, from, to string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List expenses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loaded(); err != nil {
				return err
			}
			f, err := views.ParseFilter(period, category, from, to)
			if err != nil {
				return err
			}
			if err := a.session.Tab.SetFilter(f); err != nil {
				return err
			}

			snap := a.session.Tab.View()
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), snap.Expenses)
			}
			if snap.Empty {
				fmt.Fprintln(cmd.OutOrStdout(), "No expenses.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tDATE\tCATEGORY\tAMOUNT\tDESCRIPTION")
			for _, e := range snap.Expenses {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ID, e.Date, e.Category, a.money(e.Amount), e.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&period, "period", string(views.PeriodAll), "all, today, week, month or custom")
	cmd.Flags().StringVar(&category, "category", views.CategoryAll, "category to show, or all")
	cmd.Flags().StringVar(&from, "from", "", "first date of a custom period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date of a custom period (YYYY-MM-DD)")

	return cmd
}
