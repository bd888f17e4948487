package commands

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledger/internal/accounts"
)

func newAccountsCommand(g *globals) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Chart of accounts",
	}
	accountsCmd.AddCommand(
		newAccountsListCommand(g),
		newAccountsImportCommand(g),
		newAccountsExportCommand(g),
	)
	return accountsCmd
}

func newAccountsListCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts with their balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			accts, err := s.Accounts.List(cmd.Context(), s.company)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tTYPE\tNORMAL\tBALANCE\tFLAGS")
			for _, a := range accts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", a.Code, a.Name, a.Type, a.NormalBalance, a.Balance.StringFixed(2), accountFlags(a.Header, a.Active, a.AllowManualEntry))
			}
			return tw.Flush()
		},
	}
}

func accountFlags(header, active, manual bool) string {
	flags := ""
	if header {
		flags += "H"
	}
	if !active {
		flags += "I"
	}
	if !manual {
		flags += "A"
	}
	return flags
}

func newAccountsImportCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Create accounts from a chart CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening chart: %w", err)
			}
			defer f.Close()

			chart, err := accounts.ReadChart(f)
			if err != nil {
				return err
			}

			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			created, err := s.Accounts.Seed(cmd.Context(), s.identity, s.company, chart)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts\n", len(created))
			return nil
		},
	}
}

func newAccountsExportCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "export [file.csv]",
		Short: "Write the chart of accounts as CSV (stdout by default)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.close()

			chart, err := s.Accounts.Chart(cmd.Context(), s.company)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if len(args) == 1 {
				f, err := os.Create(args[0])
				if err != nil {
					return fmt.Errorf("creating %s: %w", args[0], err)
				}
				defer f.Close()
				w = f
			}
			return accounts.WriteChart(w, chart)
		},
	}
}
