package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSummaryCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show totals, the monthly balance and spending by category",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loaded(); err != nil {
				return err
			}
			snap := a.session.Tab.View()
			if a.asJSON {
				return writeJSON(cmd.OutOrStdout(), snap)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(tw, "Total:\t%s\n", a.money(snap.Totals.Total))
			fmt.Fprintf(tw, "This week:\t%s\n", a.money(snap.Totals.Week))
			fmt.Fprintf(tw, "Today:\t%s\n", a.money(snap.Totals.Today))
			if snap.NeedsProfile {
				fmt.Fprintln(tw, "Salary:\tnot set (spendctl profile set)")
			} else {
				fmt.Fprintf(tw, "Salary:\t%s\n", a.money(snap.Finance.Salary))
				fmt.Fprintf(tw, "Spent this month:\t%s\n", a.money(snap.Finance.MonthSpent))
				fmt.Fprintf(tw, "Remaining:\t%s\n", a.money(snap.Finance.Remaining))
				fmt.Fprintf(tw, "Savings:\t%s%%\n", snap.Finance.SavingsText())
			}
			if len(snap.Categories) > 0 {
				fmt.Fprintln(tw, "\nBy category:\t")
				for _, c := range snap.Categories {
					fmt.Fprintf(tw, "  %s\t%s\n", c.Category, a.money(c.Amount))
				}
			}
			return tw.Flush()
		},
	}
}
