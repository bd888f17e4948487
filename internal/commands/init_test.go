package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/commands"
	"github.com/cleared-dev/ledger/internal/config"
)

func runLedger(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runLedgerWithInput(t, "", args...)
}

func runLedgerWithInput(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := commands.NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--user", "admin"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

// project initializes a ledger in a temp dir and returns its config path.
func project(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	_, err := runLedger(t, "init", dir, "--name", "Acme LLC", "--company-id", "acme")
	require.NoError(t, err)
	return filepath.Join(dir, "ledger.yaml")
}

func TestInit_Config(t *testing.T) {
	dir := t.TempDir()
	out, err := runLedger(t, "init", dir, "--name", "My Company", "--company-id", "myco")
	require.NoError(t, err)
	assert.Contains(t, out, "with 19 accounts")

	cfg, err := config.Load(filepath.Join(dir, "ledger.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "myco", cfg.Company.ID)
	assert.Equal(t, "My Company", cfg.Company.Name)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, filepath.Join(dir, "ledger.db"), cfg.Database.DSN)

	_, err = os.Stat(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err, "database should exist")
}

func TestInit_DefaultCompanyID(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "widgets")
	_, err := runLedger(t, "init", dir, "--name", "Widgets", "--no-chart")
	require.NoError(t, err)

	cfg, err := config.Load(filepath.Join(dir, "ledger.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "widgets", cfg.Company.ID)

	out, err := runLedger(t, "--config", filepath.Join(dir, "ledger.yaml"), "accounts", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"), "header only: %s", out)
}

func TestInit_Gitignore(t *testing.T) {
	dir := t.TempDir()
	_, err := runLedger(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	for _, pattern := range []string{"ledger.db", ".env"} {
		assert.Contains(t, string(data), pattern, ".gitignore should contain %s", pattern)
	}
}

func TestInit_RequiresName(t *testing.T) {
	_, err := runLedger(t, "init", t.TempDir())
	require.Error(t, err, "init without --name should fail")
}

func TestInit_Twice(t *testing.T) {
	dir := t.TempDir()
	_, err := runLedger(t, "init", dir, "--name", "Test Biz")
	require.NoError(t, err)
	_, err = runLedger(t, "init", dir, "--name", "Test Biz")
	require.ErrorContains(t, err, "already exists")
}
