package commands_test

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/recurring"
)

const capitalLines = `account,description,debit,credit
1010,deposit,10000.00,
3010,owner contribution,,10000.00
`

const rentLines = `account,description,debit,credit
5050,office rent,1200.00,
1010,,,1200.00
`

func TestAccounts_ExportImport(t *testing.T) {
	cfg := project(t)

	chart := filepath.Join(t.TempDir(), "chart.csv")
	_, err := runLedger(t, "--config", cfg, "accounts", "export", chart)
	require.NoError(t, err)
	data, err := os.ReadFile(chart)
	require.NoError(t, err)
	assert.Contains(t, string(data), "1010,Cash at Bank,asset,debit,1000")

	out, err := runLedger(t, "--config", cfg, "accounts", "export")
	require.NoError(t, err)
	assert.Equal(t, string(data), out)

	_, err = runLedger(t, "--config", cfg, "accounts", "import", chart)
	require.Error(t, err, "codes already exist for acme")

	out, err = runLedger(t, "--config", cfg, "--company", "globex", "accounts", "import", chart)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 19 accounts")
}

func TestPeriod(t *testing.T) {
	cfg := project(t)

	out, err := runLedger(t, "--config", cfg, "period", "open", "2024-01")
	require.NoError(t, err)
	assert.Contains(t, out, "Opened period 2024-01 (2024-01-01 to 2024-01-31)")

	_, err = runLedger(t, "--config", cfg, "period", "open", "--name", "Q1-overlap", "--start", "2024-01-15", "--end", "2024-03-31")
	require.ErrorContains(t, err, "overlap")

	_, err = runLedger(t, "--config", cfg, "period", "open")
	require.Error(t, err)

	_, err = runLedger(t, "--config", cfg, "period", "close", "2024-01")
	require.NoError(t, err)

	out, err = runLedger(t, "--config", cfg, "period", "list")
	require.NoError(t, err)
	assert.Regexp(t, `2024-01\s+2024-01-01\s+2024-01-31\s+closed`, out)

	_, err = runLedger(t, "--config", cfg, "period", "close", "2024-01")
	require.Error(t, err, "closing twice")
	_, err = runLedger(t, "--config", cfg, "period", "close", "1999-01")
	require.ErrorContains(t, err, "not found")
}

func TestEntryLifecycle(t *testing.T) {
	cfg := project(t)
	_, err := runLedger(t, "--config", cfg, "period", "open", "2024-01")
	require.NoError(t, err)

	out, err := runLedgerWithInput(t, capitalLines, "--config", cfg, "entry", "post", "--date", "2024-01-02", "-d", "opening capital")
	require.NoError(t, err)
	assert.Contains(t, out, "Posted JE/202401/0001 (10000.00) in 2024-01")

	out, err = runLedgerWithInput(t, rentLines, "--config", cfg, "entry", "post", "--date", "2024-01-15", "--period", "2024-01", "-d", "rent")
	require.NoError(t, err)
	assert.Contains(t, out, "JE/202401/0002")

	out, err = runLedger(t, "--config", cfg, "entry", "show", "JE/202401/0002")
	require.NoError(t, err)
	assert.Contains(t, out, "rent")
	assert.Regexp(t, `1010\s+1200.00\s+10000.00\s+8800.00`, out)

	out, err = runLedger(t, "--config", cfg, "entry", "show", "--csv", "JE/202401/0002")
	require.NoError(t, err)
	assert.Equal(t, rentLines, out)

	out, err = runLedger(t, "--config", cfg, "report", "tb", "--period", "2024-01")
	require.NoError(t, err)
	assert.Regexp(t, `1010\s+Cash at Bank\s+0.00\s+10000.00\s+1200.00\s+8800.00`, out)
	assert.Contains(t, out, "debit-normal 10000.00  credit-normal 10000.00  balanced")

	out, err = runLedger(t, "--config", cfg, "report", "gl", "--period", "2024-01", "--account", "1010", "--from", "2024-01-10")
	require.NoError(t, err)
	assert.Contains(t, out, "(2024-01-10 to 2024-01-31)")
	assert.Regexp(t, `opening\s+10000.00`, out)
	assert.Contains(t, out, "JE/202401/0002")
	assert.NotContains(t, out, "JE/202401/0001")

	out, err = runLedger(t, "--config", cfg, "entry", "delete", "JE/202401/0002")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted JE/202401/0002")
	_, err = runLedger(t, "--config", cfg, "entry", "show", "JE/202401/0002")
	require.ErrorContains(t, err, "not found")

	out, err = runLedger(t, "--config", cfg, "accounts", "list")
	require.NoError(t, err)
	assert.Regexp(t, `1010\s+Cash at Bank\s+asset\s+debit\s+10000.00`, out)

	_, err = runLedger(t, "--config", cfg, "period", "close", "2024-01")
	require.NoError(t, err)
	_, err = runLedger(t, "--config", cfg, "entry", "delete", "JE/202401/0001")
	require.ErrorContains(t, err, "period closed")
	_, err = runLedgerWithInput(t, rentLines, "--config", cfg, "entry", "post", "--date", "2024-01-20", "--period", "2024-01")
	require.ErrorContains(t, err, "period closed")
}

func TestEntryPost_Errors(t *testing.T) {
	cfg := project(t)
	_, err := runLedger(t, "--config", cfg, "period", "open", "2024-01")
	require.NoError(t, err)

	_, err = runLedgerWithInput(t, capitalLines, "--config", cfg, "entry", "post", "--date", "2024-02-01")
	require.ErrorContains(t, err, "not found", "no open period covers February")

	unknown := "account,description,debit,credit\n9999,,1.00,\n1010,,,1.00\n"
	_, err = runLedgerWithInput(t, unknown, "--config", cfg, "entry", "post", "--date", "2024-01-05")
	require.ErrorContains(t, err, "line 1")

	unbalanced := "account,description,debit,credit\n5050,,1.00,\n1010,,,0.50\n"
	_, err = runLedgerWithInput(t, unbalanced, "--config", cfg, "entry", "post", "--date", "2024-01-05")
	require.ErrorContains(t, err, "unbalanced entry")

	_, err = runLedger(t, "--config", cfg, "entry", "post", "--date", "05/01/2024")
	require.ErrorContains(t, err, "invalid date")
}

var templateID = regexp.MustCompile(`Created template \S+ \(([^)]+)\)`)

func TestRecurring(t *testing.T) {
	cfg := project(t)
	for _, month := range []string{"2024-01", "2024-02"} {
		_, err := runLedger(t, "--config", cfg, "period", "open", month)
		require.NoError(t, err)
	}

	out, err := runLedgerWithInput(t, rentLines, "--config", cfg, "recurring", "create",
		"--name", "Rent", "--frequency", "monthly", "--start", "2024-01-15", "--max", "2", "--auto-post", "-d", "office rent")
	require.NoError(t, err)
	assert.Contains(t, out, "next run 2024-01-15")
	m := templateID.FindStringSubmatch(out)
	require.Len(t, m, 2, out)
	id := m[1]

	out, err = runLedger(t, "--config", cfg, "recurring", "run-due", "--date", "2024-01-14")
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 0")

	out, err = runLedger(t, "--config", cfg, "recurring", "run-due", "--date", "2024-01-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 1: 1 succeeded, 0 failed, 0 skipped")

	out, err = runLedger(t, "--config", cfg, "recurring", "list")
	require.NoError(t, err)
	assert.Regexp(t, `Rent\s+monthly\s+2024-02-15\s+true\s+1\s+1\s+0`, out)

	out, err = runLedger(t, "--config", cfg, "recurring", "run", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Executed Rent for 2024-02-15, posted JE/202402/0001")

	out, err = runLedger(t, "--config", cfg, "recurring", "run-due", "--date", "2024-02-20")
	require.NoError(t, err)
	assert.Contains(t, out, "1 succeeded")

	out, err = runLedger(t, "--config", cfg, "recurring", "list")
	require.NoError(t, err)
	assert.Regexp(t, `Rent\s+monthly\s+2024-03-15\s+false\s+2\s+2\s+0`, out, "max occurrences reached")

	out, err = runLedger(t, "--config", cfg, "recurring", "history", id)
	require.NoError(t, err)
	assert.Regexp(t, `2024-01-15\s+\S+\s+success`, out)
	assert.Regexp(t, `2024-02-15\s+\S+\s+success`, out)

	out, err = runLedger(t, "--config", cfg, "recurring", "history", "--csv", id)
	require.NoError(t, err)
	execs, err := recurring.ReadHistory(strings.NewReader(out))
	require.NoError(t, err)
	assert.Len(t, execs, 3, "two scheduled runs plus the manual one")

	out, err = runLedger(t, "--config", cfg, "report", "tb", "--period", "2024-02")
	require.NoError(t, err)
	assert.Regexp(t, `5050\s+Rent\s+1200.00\s+2400.00\s+0.00\s+3600.00`, out)
}

func TestRecurring_Deactivate(t *testing.T) {
	cfg := project(t)
	out, err := runLedgerWithInput(t, rentLines, "--config", cfg, "recurring", "create",
		"--name", "Rent", "--start", "2024-01-15")
	require.NoError(t, err)
	id := templateID.FindStringSubmatch(out)[1]

	_, err = runLedger(t, "--config", cfg, "recurring", "deactivate", id)
	require.NoError(t, err)

	out, err = runLedger(t, "--config", cfg, "recurring", "run-due", "--date", "2024-01-15")
	require.NoError(t, err)
	assert.Contains(t, out, "Processed 0")

	_, err = runLedger(t, "--config", cfg, "--company", "globex", "--user", "gina", "recurring", "deactivate", id)
	require.Error(t, err)
}

func TestRecurringCreate_Validation(t *testing.T) {
	cfg := project(t)
	_, err := runLedgerWithInput(t, rentLines, "--config", cfg, "recurring", "create",
		"--name", "Rent", "--start", "2024-01-15", "--frequency", "fortnightly")
	require.ErrorContains(t, err, "unknown frequency")

	_, err = runLedgerWithInput(t, rentLines, "--config", cfg, "recurring", "create",
		"--name", "Rent", "--start", "2024-01-15", "--end", "2024-01-01")
	require.ErrorContains(t, err, "end date is before start date")
}
