package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/ledger"
)

func newReportCommand(g *globals) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Ledger reports",
	}
	reportCmd.AddCommand(
		newGeneralLedgerCommand(g),
		newTrialBalanceCommand(g),
	)
	return reportCmd
}

func newGeneralLedgerCommand(g *globals) *cobra.Command {
	var periodRef, accountCode, from, to string

	cmd := &cobra.Command{
		Use:     "gl",
		Aliases: []string{"general-ledger"},
		Short:   "General ledger for a period",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDay, err := optionalDay(from)
			if err != nil {
				return err
			}
			toDay, err := optionalDay(to)
			if err != nil {
				return err
			}

			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			per, err := resolvePeriod(cmd.Context(), s, periodRef)
			if err != nil {
				return err
			}
			q := ledger.GeneralLedgerQuery{CompanyID: s.company, PeriodID: per.ID, From: fromDay, To: toDay}
			if accountCode != "" {
				acct, err := s.Accounts.GetByCode(cmd.Context(), s.company, accountCode)
				if err != nil {
					return err
				}
				q.AccountID = acct.ID
			}

			gl, err := s.Ledger.GeneralLedger(cmd.Context(), q)
			if err != nil {
				return err
			}
			return printGeneralLedger(cmd.OutOrStdout(), gl)
		},
	}

	cmd.Flags().StringVar(&periodRef, "period", "", "period name or ID")
	cmd.Flags().StringVar(&accountCode, "account", "", "limit to one account code")
	cmd.Flags().StringVar(&from, "from", "", "first day within the period (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last day within the period (YYYY-MM-DD)")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func printGeneralLedger(w io.Writer, gl *ledger.GeneralLedger) error {
	fmt.Fprintf(w, "General ledger %s (%s to %s)\n", gl.Period.Name, gl.From.Format(dateFormat), gl.To.Format(dateFormat))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, a := range gl.Accounts {
		fmt.Fprintf(tw, "\n%s %s\t\t\t\t\t\n", a.Account.Code, a.Account.Name)
		fmt.Fprintf(tw, "\topening\t\t\t\t%s\n", a.Opening.StringFixed(2))
		for _, l := range a.Lines {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", l.Date.Format(dateFormat), l.EntryNumber, l.Description,
				amount(l.Debit.StringFixed(2)), amount(l.Credit.StringFixed(2)), l.Balance.StringFixed(2))
		}
		fmt.Fprintf(tw, "\ttotal\t\t%s\t%s\t%s\n", a.TotalDebit.StringFixed(2), a.TotalCredit.StringFixed(2), a.Ending.StringFixed(2))
	}
	return tw.Flush()
}

func newTrialBalanceCommand(g *globals) *cobra.Command {
	var periodRef, asOf string

	cmd := &cobra.Command{
		Use:     "tb",
		Aliases: []string{"trial-balance"},
		Short:   "Trial balance for a period",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asOfDay, err := optionalDay(asOf)
			if err != nil {
				return err
			}

			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			per, err := resolvePeriod(cmd.Context(), s, periodRef)
			if err != nil {
				return err
			}
			tb, err := s.Ledger.TrialBalance(cmd.Context(), s.company, per.ID, asOfDay)
			if err != nil {
				return err
			}
			return printTrialBalance(cmd.OutOrStdout(), tb)
		},
	}

	cmd.Flags().StringVar(&periodRef, "period", "", "period name or ID")
	cmd.Flags().StringVar(&asOf, "as-of", "", "balances as of this day (defaults to the period end)")
	_ = cmd.MarkFlagRequired("period")
	return cmd
}

func printTrialBalance(w io.Writer, tb *ledger.TrialBalance) error {
	fmt.Fprintf(w, "Trial balance %s as of %s\n", tb.Period.Name, tb.AsOf.Format(dateFormat))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME\tOPENING\tDEBIT\tCREDIT\tENDING")
	for _, r := range tb.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Account.Code, r.Account.Name,
			r.Opening.StringFixed(2), r.Debit.StringFixed(2), r.Credit.StringFixed(2), r.Ending.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	status := "balanced"
	if !tb.Balanced {
		status = "NOT BALANCED"
	}
	fmt.Fprintf(w, "debit-normal %s  credit-normal %s  %s\n", tb.TotalDebitNormal.StringFixed(2), tb.TotalCreditNormal.StringFixed(2), status)
	return nil
}
