package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/recurring"
)

func newRecurringCommand(g *globals) *cobra.Command {
	recurringCmd := &cobra.Command{
		Use:   "recurring",
		Short: "Recurring transaction templates",
	}
	recurringCmd.AddCommand(
		newRecurringCreateCommand(g),
		newRecurringListCommand(g),
		newRecurringHistoryCommand(g),
		newRecurringRunCommand(g),
		newRecurringRunDueCommand(g),
		newRecurringDeactivateCommand(g),
	)
	return recurringCmd
}

type templateOptions struct {
	file        string
	name        string
	description string
	frequency   string
	interval    int
	start       string
	end         string
	max         int
	autoPost    bool
}

func newRecurringCreateCommand(g *globals) *cobra.Command {
	var opts templateOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a template from a lines CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := recurring.CreateTemplateParams{
				Name:        opts.name,
				Description: opts.description,
				Frequency:   model.Frequency(opts.frequency),
				AutoPost:    opts.autoPost,
			}
			var err error
			if p.StartDate, err = parseDay(opts.start); err != nil {
				return err
			}
			if p.EndDate, err = optionalDay(opts.end); err != nil {
				return err
			}
			if cmd.Flags().Changed("interval") {
				p.IntervalDays = &opts.interval
			}
			if cmd.Flags().Changed("max") {
				p.MaxOccurrences = &opts.max
			}

			records, err := readLineFile(cmd, opts.file)
			if err != nil {
				return err
			}

			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			lines, err := resolveLines(cmd.Context(), s, records)
			if err != nil {
				return err
			}
			p.CompanyID = s.company
			p.Lines = make([]recurring.TemplateLineInput, len(lines))
			for i, l := range lines {
				p.Lines[i] = recurring.TemplateLineInput{AccountID: l.AccountID, Description: l.Description, Debit: l.Debit, Credit: l.Credit}
			}

			tmpl, err := s.Recurring.CreateTemplate(cmd.Context(), s.identity, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created template %s (%s), next run %s\n", tmpl.Name, tmpl.ID, tmpl.NextRunDate.Format(dateFormat))
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.file, "file", "f", "-", "lines CSV, - for stdin")
	f.StringVar(&opts.name, "name", "", "template name")
	f.StringVarP(&opts.description, "description", "d", "", "description copied to generated entries")
	f.StringVar(&opts.frequency, "frequency", string(model.FrequencyMonthly), "daily, weekly, monthly, quarterly, yearly or custom")
	f.IntVar(&opts.interval, "interval", 0, "days between runs for custom frequency")
	f.StringVar(&opts.start, "start", "", "first run date (YYYY-MM-DD)")
	f.StringVar(&opts.end, "end", "", "last allowed run date (YYYY-MM-DD)")
	f.IntVar(&opts.max, "max", 0, "stop after this many successful runs")
	f.BoolVar(&opts.autoPost, "auto-post", false, "post a journal entry on each run")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("start")
	return cmd
}

func newRecurringListCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			tmpls, err := s.Recurring.ListTemplates(cmd.Context(), s.company)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tFREQUENCY\tNEXT RUN\tACTIVE\tRUNS\tOK\tFAILED\tID")
			for _, t := range tmpls {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%d\t%d\t%d\t%s\n", t.Name, t.Frequency, t.NextRunDate.Format(dateFormat),
					t.Active, t.ExecutionCount, t.SuccessCount, t.FailureCount, t.ID)
			}
			return tw.Flush()
		},
	}
}

func newRecurringHistoryCommand(g *globals) *cobra.Command {
	var asCSV bool

	cmd := &cobra.Command{
		Use:   "history <template-id>",
		Short: "Show a template's executions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			execs, err := s.Recurring.History(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asCSV {
				return recurring.WriteHistory(cmd.OutOrStdout(), execs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SCHEDULED\tPROCESSED\tSTATUS\tENTRY\tERROR")
			for _, e := range execs {
				entry := ""
				if e.EntryID != nil {
					entry = *e.EntryID
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.ScheduledDate.Format(dateFormat), e.ProcessedAt.Format(time.RFC3339),
					e.Status, entry, e.ErrorMessage)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().BoolVar(&asCSV, "csv", false, "print history as CSV")
	return cmd
}

func newRecurringRunCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "run <template-id>",
		Short: "Execute a template once now without advancing its schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			tmpl, err := s.Recurring.GetTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if tmpl.CompanyID != s.company {
				return apperr.NotFound("template", args[0])
			}
			exec, err := s.Recurring.ExecuteOne(cmd.Context(), *tmpl, s.identity)
			if err != nil {
				return err
			}
			if exec.EntryID != nil {
				entry, err := s.Journal.GetEntry(cmd.Context(), *exec.EntryID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Executed %s for %s, posted %s\n", tmpl.Name, exec.ScheduledDate.Format(dateFormat), entry.Number)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Executed %s for %s\n", tmpl.Name, exec.ScheduledDate.Format(dateFormat))
			return nil
		},
	}
}

func newRecurringRunDueCommand(g *globals) *cobra.Command {
	var date string

	cmd := &cobra.Command{
		Use:   "run-due",
		Short: "Run every due template once across all companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now().UTC()
			if date != "" {
				day, err := parseDay(date)
				if err != nil {
					return err
				}
				now = day
			}

			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			report, err := s.Recurring.ProcessDue(cmd.Context(), now)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Processed %d: %d succeeded, %d failed, %d skipped\n",
				report.Processed, report.Succeeded, report.Failed, report.Skipped)
			return nil
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "treat this day as today (YYYY-MM-DD)")
	return cmd
}

func newRecurringDeactivateCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <template-id>",
		Short: "Stop a template from running again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			if err := s.Recurring.Deactivate(cmd.Context(), s.identity, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deactivated %s\n", args[0])
			return nil
		},
	}
}
