package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/model"
)

// GeneralLedgerQuery selects the general ledger scope. From and To narrow
// the period range; they never widen it.
type GeneralLedgerQuery struct {
	CompanyID string
	PeriodID  string
	AccountID string // optional: single account
	From      *time.Time
	To        *time.Time
}

// LedgerLine is one posting with the account's balance after it.
type LedgerLine struct {
	EntryID     string
	EntryNumber string
	Date        time.Time
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Balance     decimal.Decimal
}

// AccountLedger is the general ledger of one account.
type AccountLedger struct {
	Account     model.Account
	Opening     decimal.Decimal
	Lines       []LedgerLine
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	Ending      decimal.Decimal
}

// GeneralLedger is the result of a general ledger query.
type GeneralLedger struct {
	CompanyID string
	Period    model.Period
	From      time.Time
	To        time.Time
	Accounts  []AccountLedger
}

// GeneralLedger lists posted lines per account within the query scope, with
// each account's opening balance and running balance.
func (e *Engine) GeneralLedger(ctx context.Context, q GeneralLedgerQuery) (*GeneralLedger, error) {
	per, err := scope(ctx, e.db, q.CompanyID, q.PeriodID)
	if err != nil {
		return nil, err
	}

	from, to := model.Day(per.StartDate), model.Day(per.EndDate)
	if q.From != nil && model.Day(*q.From).After(from) {
		from = model.Day(*q.From)
	}
	if q.To != nil && model.Day(*q.To).Before(to) {
		to = model.Day(*q.To)
	}
	if to.Before(from) {
		return nil, apperr.Invalid("range", per.Name, "to %s is before from %s", to.Format(dateFormat), from.Format(dateFormat))
	}

	accts, err := e.accountsFor(ctx, q.CompanyID, q.AccountID)
	if err != nil {
		return nil, err
	}
	rows, err := e.postedLines(ctx, q.CompanyID, q.AccountID, to)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[string]*AccountLedger, len(accts))
	for _, a := range accts {
		byAccount[a.ID] = &AccountLedger{
			Account:     a,
			Opening:     decimal.Zero,
			TotalDebit:  decimal.Zero,
			TotalCredit: decimal.Zero,
		}
	}

	for _, r := range rows {
		al, ok := byAccount[r.AccountID]
		if !ok {
			continue
		}
		dir := al.Account.NormalBalance
		if model.Day(r.Date).Before(from) {
			al.Opening = dir.Apply(al.Opening, r.Debit, r.Credit)
			continue
		}
		running := al.Opening
		if n := len(al.Lines); n > 0 {
			running = al.Lines[n-1].Balance
		}
		desc := r.LineDescription
		if desc == "" {
			desc = r.EntryDescription
		}
		al.Lines = append(al.Lines, LedgerLine{
			EntryID:     r.EntryID,
			EntryNumber: r.Number,
			Date:        r.Date,
			Description: desc,
			Debit:       r.Debit,
			Credit:      r.Credit,
			Balance:     dir.Apply(running, r.Debit, r.Credit),
		})
		al.TotalDebit = al.TotalDebit.Add(r.Debit)
		al.TotalCredit = al.TotalCredit.Add(r.Credit)
	}

	gl := &GeneralLedger{CompanyID: q.CompanyID, Period: *per, From: from, To: to}
	for _, a := range accts {
		al := byAccount[a.ID]
		al.Ending = a.NormalBalance.Apply(al.Opening, al.TotalDebit, al.TotalCredit)
		if q.AccountID == "" && len(al.Lines) == 0 && al.Opening.IsZero() {
			continue
		}
		gl.Accounts = append(gl.Accounts, *al)
	}

	e.log.Debug("general ledger",
		zap.String("company", q.CompanyID),
		zap.String("period", per.Name),
		zap.Int("accounts", len(gl.Accounts)),
		zap.Int("lines", len(rows)))
	return gl, nil
}
