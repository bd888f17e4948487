package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/app"
	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/buildinfo"
	"github.com/cleared-dev/ledger/internal/config"
	"github.com/cleared-dev/ledger/internal/logger"
)

const dateFormat = "2006-01-02"

// globals holds the persistent flags shared by every subcommand.
type globals struct {
	configPath string
	envFile    string
	user       string
	company    string
	verbose    bool
}

// session is an opened App plus the identity commands act as.
type session struct {
	*app.App
	identity auth.Identity
	company  string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:     "ledger",
		Short:   "Double-entry ledger with recurring transactions",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configPath, "config", "ledger.yaml", "config file")
	flags.StringVar(&g.envFile, "env-file", "", "env file to load before the config (default .env if present)")
	flags.StringVar(&g.user, "user", defaultUser(), "identity to act as")
	flags.StringVar(&g.company, "company", "", "company ID (defaults to company.id in the config)")
	flags.BoolVarP(&g.verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(
		newInitCommand(g),
		newAccountsCommand(g),
		newPeriodCommand(g),
		newEntryCommand(g),
		newReportCommand(g),
		newRecurringCommand(g),
		newServeCommand(g),
	)

	return rootCmd
}

func defaultUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "cli"
}

// loadConfig reads env files then the config file.
func (g *globals) loadConfig() (*config.Config, error) {
	var files []string
	if g.envFile != "" {
		files = append(files, g.envFile)
	}
	if err := config.LoadEnv(files...); err != nil {
		return nil, err
	}
	return config.Load(g.configPath)
}

// open loads config and builds the App. Logging is silent unless verbose
// or forced by the caller.
func (g *globals) open(ctx context.Context, forceLog bool) (*session, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if g.verbose || forceLog {
		if log, err = logger.New(cfg.Log.Mode); err != nil {
			return nil, fmt.Errorf("building logger: %w", err)
		}
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	company := g.company
	if company == "" {
		company = cfg.Company.ID
	}
	return &session{
		App:      a,
		identity: auth.Identity{ID: g.user, CompanyID: company},
		company:  company,
	}, nil
}

func (s *session) close() {
	_ = s.Log.Sync()
	_ = s.Close()
}

func parseDay(s string) (time.Time, error) {
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

func optionalDay(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parseDay(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
