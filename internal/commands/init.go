package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/app"
	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/config"
)

type initOptions struct {
	name      string
	companyID string
	driver    string
	dsn       string
	noChart   bool
}

func newInitCommand(g *globals) *cobra.Command {
	var opts initOptions

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new ledger project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd, g, absDir, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "", "business name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&opts.companyID, "company-id", "", "company ID (defaults to a slug of the directory name)")
	cmd.Flags().StringVar(&opts.driver, "driver", "sqlite", "database driver: sqlite or postgres")
	cmd.Flags().StringVar(&opts.dsn, "dsn", "", "database DSN (defaults to ledger.db in the directory)")
	cmd.Flags().BoolVar(&opts.noChart, "no-chart", false, "do not seed the default chart of accounts")

	return cmd
}

func runInit(cmd *cobra.Command, g *globals, dir string, opts initOptions) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	companyID := opts.companyID
	if companyID == "" {
		companyID = filepath.Base(dir)
	}

	cfg := config.Default(companyID, opts.name)
	cfg.Database.Driver = opts.driver
	cfg.Database.DSN = opts.dsn
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = filepath.Join(dir, "ledger.db")
	}

	cfgPath := filepath.Join(dir, "ledger.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	gitignore := "ledger.db\nledger.db-*\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	// Creating the app migrates the schema.
	a, err := app.New(cmd.Context(), cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer a.Close()

	seeded := 0
	if !opts.noChart {
		accts, err := a.Accounts.SeedDefaultChart(cmd.Context(), auth.Identity{ID: g.user, CompanyID: companyID}, companyID)
		if err != nil {
			return fmt.Errorf("writing chart of accounts: %w", err)
		}
		seeded = len(accts)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger for %s (%s) at %s with %d accounts\n", opts.name, companyID, dir, seeded)
	return nil
}
