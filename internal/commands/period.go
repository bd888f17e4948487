package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/period"
)

func newPeriodCommand(g *globals) *cobra.Command {
	periodCmd := &cobra.Command{
		Use:   "period",
		Short: "Accounting periods",
	}
	periodCmd.AddCommand(
		newPeriodOpenCommand(g),
		newPeriodCloseCommand(g),
		newPeriodListCommand(g),
	)
	return periodCmd
}

func newPeriodOpenCommand(g *globals) *cobra.Command {
	var name, start, end string

	cmd := &cobra.Command{
		Use:   "open [YYYY-MM]",
		Short: "Open a calendar month, or a custom range with --start and --end",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			var p period.OpenParams
			switch {
			case len(args) == 1:
				month, err := time.Parse("2006-01", args[0])
				if err != nil {
					return fmt.Errorf("invalid month %q, want YYYY-MM", args[0])
				}
				p = period.Month(s.company, month.Year(), month.Month())
			case start != "" && end != "":
				if p.StartDate, err = parseDay(start); err != nil {
					return err
				}
				if p.EndDate, err = parseDay(end); err != nil {
					return err
				}
				p.CompanyID = s.company
				p.Name = start + ".." + end
			default:
				return fmt.Errorf("give a month or both --start and --end")
			}
			if name != "" {
				p.Name = name
			}

			per, err := s.Periods.Open(cmd.Context(), s.identity, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Opened period %s (%s to %s) %s\n",
				per.Name, per.StartDate.Format(dateFormat), per.EndDate.Format(dateFormat), per.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "period name")
	cmd.Flags().StringVar(&start, "start", "", "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day (YYYY-MM-DD)")
	return cmd
}

func newPeriodCloseCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "close <period>",
		Short: "Close a period; closed periods accept no postings or deletions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			per, err := resolvePeriod(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if _, err := s.Periods.Close(cmd.Context(), s.identity, per.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Closed period %s\n", per.Name)
			return nil
		},
	}
}

func newPeriodListCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List periods",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			periods, err := s.Periods.List(cmd.Context(), s.company)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tSTART\tEND\tSTATUS\tID")
			for _, p := range periods {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, p.StartDate.Format(dateFormat), p.EndDate.Format(dateFormat), p.Status, p.ID)
			}
			return tw.Flush()
		},
	}
}

// resolvePeriod finds a company period by ID or name.
func resolvePeriod(ctx context.Context, s *session, ref string) (*model.Period, error) {
	periods, err := s.Periods.List(ctx, s.company)
	if err != nil {
		return nil, err
	}
	for i := range periods {
		if periods[i].ID == ref || periods[i].Name == ref {
			return &periods[i], nil
		}
	}
	return nil, apperr.NotFound("period", ref)
}
