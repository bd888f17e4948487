package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/model"
)

// TrialBalanceRow is one account's opening, activity and ending balance.
type TrialBalanceRow struct {
	Account model.Account
	Opening decimal.Decimal
	Debit   decimal.Decimal
	Credit  decimal.Decimal
	Ending  decimal.Decimal
}

// TrialBalance is the result of a trial balance query. Balanced compares the
// ending totals of debit-normal and credit-normal accounts.
type TrialBalance struct {
	CompanyID         string
	Period            model.Period
	AsOf              time.Time
	Rows              []TrialBalanceRow
	TotalDebitNormal  decimal.Decimal
	TotalCreditNormal decimal.Decimal
	Balanced          bool
}

// TrialBalance reports every active account with activity or a balance for
// the period up to asOf. A nil asOf, or one past the period end, means the
// period end.
func (e *Engine) TrialBalance(ctx context.Context, companyID, periodID string, asOf *time.Time) (*TrialBalance, error) {
	per, err := scope(ctx, e.db, companyID, periodID)
	if err != nil {
		return nil, err
	}

	start, end := model.Day(per.StartDate), model.Day(per.EndDate)
	if asOf != nil && model.Day(*asOf).Before(end) {
		end = model.Day(*asOf)
	}

	accts, err := e.accountsFor(ctx, companyID, "")
	if err != nil {
		return nil, err
	}
	rows, err := e.postedLines(ctx, companyID, "", end)
	if err != nil {
		return nil, err
	}

	byAccount := make(map[string]*TrialBalanceRow, len(accts))
	for _, a := range accts {
		if !a.Active {
			continue
		}
		byAccount[a.ID] = &TrialBalanceRow{Account: a, Opening: decimal.Zero, Debit: decimal.Zero, Credit: decimal.Zero}
	}

	for _, r := range rows {
		tr, ok := byAccount[r.AccountID]
		if !ok {
			continue
		}
		if model.Day(r.Date).Before(start) {
			tr.Opening = tr.Account.NormalBalance.Apply(tr.Opening, r.Debit, r.Credit)
			continue
		}
		tr.Debit = tr.Debit.Add(r.Debit)
		tr.Credit = tr.Credit.Add(r.Credit)
	}

	tb := &TrialBalance{
		CompanyID:         companyID,
		Period:            *per,
		AsOf:              end,
		TotalDebitNormal:  decimal.Zero,
		TotalCreditNormal: decimal.Zero,
	}
	for _, a := range accts {
		tr, ok := byAccount[a.ID]
		if !ok {
			continue
		}
		tr.Ending = a.NormalBalance.Apply(tr.Opening, tr.Debit, tr.Credit)
		if tr.Debit.IsZero() && tr.Credit.IsZero() && tr.Ending.IsZero() {
			continue
		}
		if a.NormalBalance == model.NormalDebit {
			tb.TotalDebitNormal = tb.TotalDebitNormal.Add(tr.Ending)
		} else {
			tb.TotalCreditNormal = tb.TotalCreditNormal.Add(tr.Ending)
		}
		tb.Rows = append(tb.Rows, *tr)
	}
	tb.Balanced = tb.TotalDebitNormal.Sub(tb.TotalCreditNormal).Abs().LessThan(e.tolerance)

	e.log.Debug("trial balance",
		zap.String("company", companyID),
		zap.String("period", per.Name),
		zap.Time("as_of", end),
		zap.Int("rows", len(tb.Rows)),
		zap.Bool("balanced", tb.Balanced))
	return tb, nil
}
