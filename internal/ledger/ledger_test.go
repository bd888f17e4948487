package ledger

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/period"
	"github.com/cleared-dev/ledger/internal/store/storetest"
)

var clerk = auth.Identity{ID: "clerk", CompanyID: "acme"}

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	reg     *accounts.Registry
	periods *period.Service
	journal *journal.Engine
	ledger  *Engine
	jan     *model.Period
	feb     *model.Period
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := storetest.Open(t)
	f := &fixture{
		reg:     accounts.NewRegistry(db, auth.AllowAll{}),
		periods: period.NewService(db, auth.AllowAll{}, nil),
		journal: journal.NewEngine(db, auth.AllowAll{}),
		ledger:  NewEngine(db, nil),
	}
	_, err := f.reg.SeedDefaultChart(ctx, clerk, "acme")
	require.NoError(t, err)
	f.jan, err = f.periods.Open(ctx, clerk, period.Month("acme", 2024, time.January))
	require.NoError(t, err)
	f.feb, err = f.periods.Open(ctx, clerk, period.Month("acme", 2024, time.February))
	require.NoError(t, err)
	return f
}

func (f *fixture) id(t *testing.T, code string) string {
	t.Helper()
	a, err := f.reg.GetByCode(context.Background(), "acme", code)
	require.NoError(t, err)
	return a.ID
}

func (f *fixture) post(t *testing.T, per *model.Period, day time.Time, desc, debitCode, creditCode, amount string) {
	t.Helper()
	_, err := f.journal.CreateEntry(context.Background(), clerk, journal.CreateEntryParams{
		CompanyID:   "acme",
		PeriodID:    per.ID,
		Date:        day,
		Description: desc,
		Lines: []journal.LineInput{
			{AccountID: f.id(t, debitCode), Debit: dec(amount)},
			{AccountID: f.id(t, creditCode), Credit: dec(amount)},
		},
	})
	require.NoError(t, err)
}

// books posts a small two-month history.
func (f *fixture) books(t *testing.T) {
	f.post(t, f.jan, date(2024, 1, 2), "capital", "1010", "3010", "10000.00")
	f.post(t, f.jan, date(2024, 1, 10), "consulting", "1200", "4010", "2500.00")
	f.post(t, f.jan, date(2024, 1, 15), "rent", "5050", "1010", "1200.00")
	f.post(t, f.feb, date(2024, 2, 3), "client paid", "1010", "1200", "2500.00")
	f.post(t, f.feb, date(2024, 2, 14), "saas", "5020", "2010", "49.99")
}

func TestGeneralLedger_SingleAccount(t *testing.T) {
	f := setup(t)
	f.books(t)

	gl, err := f.ledger.GeneralLedger(context.Background(), GeneralLedgerQuery{
		CompanyID: "acme",
		PeriodID:  f.feb.ID,
		AccountID: f.id(t, "1010"),
	})
	require.NoError(t, err)
	require.Len(t, gl.Accounts, 1)

	cash := gl.Accounts[0]
	assert.True(t, cash.Opening.Equal(dec("8800.00")), "opening %s", cash.Opening)
	require.Len(t, cash.Lines, 1)
	assert.Equal(t, "JE/202402/0001", cash.Lines[0].EntryNumber)
	assert.Equal(t, "client paid", cash.Lines[0].Description)
	assert.True(t, cash.Lines[0].Balance.Equal(dec("11300.00")))
	assert.True(t, cash.TotalDebit.Equal(dec("2500.00")))
	assert.True(t, cash.TotalCredit.IsZero())
	assert.True(t, cash.Ending.Equal(dec("11300.00")))
}

func TestGeneralLedger_RunningBalance(t *testing.T) {
	f := setup(t)
	f.books(t)

	gl, err := f.ledger.GeneralLedger(context.Background(), GeneralLedgerQuery{
		CompanyID: "acme",
		PeriodID:  f.jan.ID,
		AccountID: f.id(t, "1010"),
	})
	require.NoError(t, err)
	cash := gl.Accounts[0]
	assert.True(t, cash.Opening.IsZero())
	require.Len(t, cash.Lines, 2)
	assert.True(t, cash.Lines[0].Balance.Equal(dec("10000.00")))
	assert.True(t, cash.Lines[1].Balance.Equal(dec("8800.00")))
	assert.True(t, cash.Ending.Equal(cash.Lines[1].Balance))
}

func TestGeneralLedger_AllAccountsGroupsActiveOnly(t *testing.T) {
	f := setup(t)
	f.books(t)

	gl, err := f.ledger.GeneralLedger(context.Background(), GeneralLedgerQuery{CompanyID: "acme", PeriodID: f.jan.ID})
	require.NoError(t, err)

	codes := make([]string, len(gl.Accounts))
	for i, a := range gl.Accounts {
		codes[i] = a.Account.Code
	}
	assert.Equal(t, []string{"1010", "1200", "3010", "4010", "5050"}, codes)

	for _, a := range gl.Accounts {
		want := a.Account.NormalBalance.Apply(a.Opening, a.TotalDebit, a.TotalCredit)
		assert.True(t, a.Ending.Equal(want), a.Account.Code)
	}
}

func TestGeneralLedger_DateNarrowing(t *testing.T) {
	f := setup(t)
	f.books(t)
	from := date(2024, 1, 5)
	to := date(2024, 1, 12)

	gl, err := f.ledger.GeneralLedger(context.Background(), GeneralLedgerQuery{
		CompanyID: "acme",
		PeriodID:  f.jan.ID,
		AccountID: f.id(t, "1010"),
		From:      &from,
		To:        &to,
	})
	require.NoError(t, err)
	cash := gl.Accounts[0]
	assert.True(t, cash.Opening.Equal(dec("10000.00")), "capital falls before From")
	assert.Empty(t, cash.Lines, "rent falls after To")
	assert.Equal(t, from, gl.From)
	assert.Equal(t, to, gl.To)

	wide := date(2023, 6, 1)
	gl, err = f.ledger.GeneralLedger(context.Background(), GeneralLedgerQuery{CompanyID: "acme", PeriodID: f.jan.ID, From: &wide})
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 1), gl.From, "From never widens the period")

	_, err = f.ledger.GeneralLedger(context.Background(), GeneralLedgerQuery{CompanyID: "acme", PeriodID: f.jan.ID, From: &to, To: &from})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestGeneralLedger_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.ledger.GeneralLedger(ctx, GeneralLedgerQuery{CompanyID: "acme", PeriodID: "missing"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = f.ledger.GeneralLedger(ctx, GeneralLedgerQuery{CompanyID: "globex", PeriodID: f.jan.ID})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = f.ledger.GeneralLedger(ctx, GeneralLedgerQuery{CompanyID: "acme", PeriodID: f.jan.ID, AccountID: "missing"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTrialBalance(t *testing.T) {
	f := setup(t)
	f.books(t)

	tb, err := f.ledger.TrialBalance(context.Background(), "acme", f.feb.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 2, 29), tb.AsOf)

	rows := map[string]TrialBalanceRow{}
	for _, r := range tb.Rows {
		rows[r.Account.Code] = r
	}
	assert.Len(t, rows, 7)

	cash := rows["1010"]
	assert.True(t, cash.Opening.Equal(dec("8800.00")))
	assert.True(t, cash.Debit.Equal(dec("2500.00")))
	assert.True(t, cash.Ending.Equal(dec("11300.00")))

	ar := rows["1200"]
	assert.True(t, ar.Opening.Equal(dec("2500.00")))
	assert.True(t, ar.Ending.IsZero())
	assert.True(t, ar.Credit.Equal(dec("2500.00")), "included for its activity")

	assert.True(t, rows["3010"].Debit.IsZero(), "no activity in February")
	assert.True(t, rows["3010"].Ending.Equal(dec("10000.00")))

	assert.True(t, tb.Balanced)
	assert.True(t, tb.TotalDebitNormal.Equal(dec("12549.99")), "debit-normal %s", tb.TotalDebitNormal)
	assert.True(t, tb.TotalDebitNormal.Equal(tb.TotalCreditNormal))
}

func TestTrialBalance_AsOf(t *testing.T) {
	f := setup(t)
	f.books(t)

	asOf := date(2024, 1, 12)
	tb, err := f.ledger.TrialBalance(context.Background(), "acme", f.jan.ID, &asOf)
	require.NoError(t, err)
	assert.Equal(t, asOf, tb.AsOf)

	for _, r := range tb.Rows {
		assert.NotEqual(t, "5050", r.Account.Code, "rent posted after asOf")
	}
	assert.True(t, tb.Balanced)

	late := date(2030, 1, 1)
	tb, err = f.ledger.TrialBalance(context.Background(), "acme", f.jan.ID, &late)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 31), tb.AsOf, "clamped to period end")
}

func TestTrialBalance_Empty(t *testing.T) {
	f := setup(t)

	tb, err := f.ledger.TrialBalance(context.Background(), "acme", f.jan.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, tb.Rows)
	assert.True(t, tb.Balanced)
}

// Any set of balanced entries yields equal debit-normal and credit-normal
// totals.
func TestTrialBalance_AlwaysBalances(t *testing.T) {
	f := setup(t)
	codes := []string{"1010", "1020", "1200", "2010", "2100", "3010", "4010", "4020", "5010", "5030"}

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 40; i++ {
		per, month := f.jan, 1
		if rng.Intn(2) == 0 {
			per, month = f.feb, 2
		}
		amount := decimal.New(rng.Int63n(50000)+1, -2).String()
		f.post(t, per, date(2024, month, 1+rng.Intn(28)), "random",
			codes[rng.Intn(len(codes))], codes[rng.Intn(len(codes))], amount)
	}

	for _, per := range []*model.Period{f.jan, f.feb} {
		tb, err := f.ledger.TrialBalance(context.Background(), "acme", per.ID, nil)
		require.NoError(t, err)
		assert.True(t, tb.Balanced, "%s: %s vs %s", per.Name, tb.TotalDebitNormal, tb.TotalCreditNormal)
	}
}

func TestTrialBalance_EndingMatchesStoredBalance(t *testing.T) {
	f := setup(t)
	f.books(t)
	ctx := context.Background()

	tb, err := f.ledger.TrialBalance(ctx, "acme", f.feb.ID, nil)
	require.NoError(t, err)
	for _, r := range tb.Rows {
		acct, err := f.reg.Get(ctx, r.Account.ID)
		require.NoError(t, err)
		assert.True(t, acct.Balance.Equal(r.Ending), "%s: stored %s, replay %s", acct.Code, acct.Balance, r.Ending)
	}
}
