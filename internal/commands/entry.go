package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
)

func newEntryCommand(g *globals) *cobra.Command {
	entryCmd := &cobra.Command{
		Use:   "entry",
		Short: "Journal entries",
	}
	entryCmd.AddCommand(
		newEntryPostCommand(g),
		newEntryShowCommand(g),
		newEntryDeleteCommand(g),
	)
	return entryCmd
}

func newEntryPostCommand(g *globals) *cobra.Command {
	var file, periodRef, date, description string

	cmd := &cobra.Command{
		Use:   "post",
		Short: "Post an entry from a lines CSV (" + journal.Header + ")",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := parseDay(date)
			if err != nil {
				return err
			}
			records, err := readLineFile(cmd, file)
			if err != nil {
				return err
			}

			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			var per *model.Period
			if periodRef != "" {
				per, err = resolvePeriod(cmd.Context(), s, periodRef)
			} else {
				per, err = s.Periods.FindOpen(cmd.Context(), s.company, day)
			}
			if err != nil {
				return err
			}

			lines, err := resolveLines(cmd.Context(), s, records)
			if err != nil {
				return err
			}

			entry, err := s.Journal.CreateEntry(cmd.Context(), s.identity, journal.CreateEntryParams{
				CompanyID:   s.company,
				PeriodID:    per.ID,
				Date:        day,
				Description: description,
				Lines:       lines,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Posted %s (%s) in %s\n", entry.Number, entry.TotalDebit.StringFixed(2), per.Name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "lines CSV, - for stdin")
	cmd.Flags().StringVar(&periodRef, "period", "", "period name or ID (defaults to the open period covering --date)")
	cmd.Flags().StringVar(&date, "date", "", "entry date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "entry description")
	_ = cmd.MarkFlagRequired("date")
	return cmd
}

func readLineFile(cmd *cobra.Command, path string) ([]journal.LineRecord, error) {
	var r io.Reader = cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("opening lines: %w", err)
		}
		defer f.Close()
		r = f
	}
	return journal.ReadLines(r)
}

// resolveLines maps account codes to IDs.
func resolveLines(ctx context.Context, s *session, records []journal.LineRecord) ([]journal.LineInput, error) {
	lines := make([]journal.LineInput, len(records))
	for i, rec := range records {
		acct, err := s.Accounts.GetByCode(ctx, s.company, rec.AccountCode)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		lines[i] = journal.LineInput{AccountID: acct.ID, Description: rec.Description, Debit: rec.Debit, Credit: rec.Credit}
	}
	return lines, nil
}

// resolveEntry finds an entry by display number, then by ID.
func resolveEntry(ctx context.Context, s *session, ref string) (*model.Entry, error) {
	entry, err := s.Journal.GetByNumber(ctx, s.company, ref)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	entry, err = s.Journal.GetEntry(ctx, ref)
	if err != nil {
		return nil, err
	}
	if entry.CompanyID != s.company {
		return nil, apperr.NotFound("entry", ref)
	}
	return entry, nil
}

func newEntryShowCommand(g *globals) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "show <number|id>",
		Short: "Show an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			entry, err := resolveEntry(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asCSV {
				return journal.WriteLines(out, journal.RecordsFromEntry(entry))
			}

			fmt.Fprintf(out, "%s  %s  %s  [%s by %s]\n", entry.Number, entry.Date.Format(dateFormat), entry.Description, entry.Source, entry.CreatedBy)
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(tw, "ACCOUNT\tDEBIT\tCREDIT\tBEFORE\tAFTER\t")
			for _, r := range entry.Lines {
				code := r.AccountID
				if r.Account != nil {
					code = r.Account.Code
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n", code, amount(r.Debit.StringFixed(2)), amount(r.Credit.StringFixed(2)),
					r.BalanceBefore.StringFixed(2), r.BalanceAfter.StringFixed(2))
			}
			fmt.Fprintf(tw, "TOTAL\t%s\t%s\t\t\t\n", entry.TotalDebit.StringFixed(2), entry.TotalCredit.StringFixed(2))
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "print lines as CSV")
	return cmd
}

// amount blanks zero amounts.
func amount(s string) string {
	if s == "0.00" {
		return ""
	}
	return s
}

func newEntryDeleteCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <number|id>",
		Short: "Delete an entry from an open period, reverting its balances",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			entry, err := resolveEntry(cmd.Context(), s, args[0])
			if err != nil {
				return err
			}
			if err := s.Journal.DeleteEntry(cmd.Context(), s.identity, entry.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", entry.Number)
			return nil
		},
	}
}
