package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/ledger"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/recurring"
)

const dateFormat = "2006-01-02"

type createEntryRequest struct {
	PeriodID    string             `json:"period_id" binding:"required"`
	Date        string             `json:"date" binding:"required"`
	Description string             `json:"description"`
	Lines       []entryLineRequest `json:"lines" binding:"required"`
}

type entryLineRequest struct {
	AccountID   string          `json:"account_id"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type entryResponse struct {
	ID          string          `json:"id"`
	Number      string          `json:"number"`
	CompanyID   string          `json:"company_id"`
	PeriodID    string          `json:"period_id"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Source      string          `json:"source"`
	CreatedBy   string          `json:"created_by"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
	PostedAt    *time.Time      `json:"posted_at,omitempty"`
	Lines       []lineResponse  `json:"lines"`
}

type lineResponse struct {
	Order         int             `json:"order"`
	AccountID     string          `json:"account_id"`
	AccountCode   string          `json:"account_code,omitempty"`
	Description   string          `json:"description,omitempty"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	BalanceBefore decimal.Decimal `json:"balance_before"`
	BalanceAfter  decimal.Decimal `json:"balance_after"`
}

func toEntryResponse(e *model.Entry) entryResponse {
	out := entryResponse{
		ID:          e.ID,
		Number:      e.Number,
		CompanyID:   e.CompanyID,
		PeriodID:    e.PeriodID,
		Date:        e.Date.Format(dateFormat),
		Description: e.Description,
		Source:      string(e.Source),
		CreatedBy:   e.CreatedBy,
		TotalDebit:  e.TotalDebit,
		TotalCredit: e.TotalCredit,
		PostedAt:    e.PostedAt,
		Lines:       make([]lineResponse, len(e.Lines)),
	}
	for i, l := range e.Lines {
		lr := lineResponse{
			Order:         l.Order,
			AccountID:     l.AccountID,
			Description:   l.Description,
			Debit:         l.Debit,
			Credit:        l.Credit,
			BalanceBefore: l.BalanceBefore,
			BalanceAfter:  l.BalanceAfter,
		}
		if l.Account != nil {
			lr.AccountCode = l.Account.Code
		}
		out.Lines[i] = lr
	}
	return out
}

type accountLedgerResponse struct {
	AccountID   string               `json:"account_id"`
	Code        string               `json:"code"`
	Name        string               `json:"name"`
	Opening     decimal.Decimal      `json:"opening"`
	Lines       []ledgerLineResponse `json:"lines"`
	TotalDebit  decimal.Decimal      `json:"total_debit"`
	TotalCredit decimal.Decimal      `json:"total_credit"`
	Ending      decimal.Decimal      `json:"ending"`
}

type ledgerLineResponse struct {
	EntryID     string          `json:"entry_id"`
	EntryNumber string          `json:"entry_number"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Balance     decimal.Decimal `json:"balance"`
}

type generalLedgerResponse struct {
	Period   string                  `json:"period"`
	From     string                  `json:"from"`
	To       string                  `json:"to"`
	Accounts []accountLedgerResponse `json:"accounts"`
}

func toGeneralLedgerResponse(gl *ledger.GeneralLedger) generalLedgerResponse {
	out := generalLedgerResponse{
		Period:   gl.Period.Name,
		From:     gl.From.Format(dateFormat),
		To:       gl.To.Format(dateFormat),
		Accounts: make([]accountLedgerResponse, len(gl.Accounts)),
	}
	for i, a := range gl.Accounts {
		ar := accountLedgerResponse{
			AccountID:   a.Account.ID,
			Code:        a.Account.Code,
			Name:        a.Account.Name,
			Opening:     a.Opening,
			Lines:       make([]ledgerLineResponse, len(a.Lines)),
			TotalDebit:  a.TotalDebit,
			TotalCredit: a.TotalCredit,
			Ending:      a.Ending,
		}
		for j, l := range a.Lines {
			ar.Lines[j] = ledgerLineResponse{
				EntryID:     l.EntryID,
				EntryNumber: l.EntryNumber,
				Date:        l.Date.Format(dateFormat),
				Description: l.Description,
				Debit:       l.Debit,
				Credit:      l.Credit,
				Balance:     l.Balance,
			}
		}
		out.Accounts[i] = ar
	}
	return out
}

type trialBalanceRowResponse struct {
	AccountID     string          `json:"account_id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	NormalBalance string          `json:"normal_balance"`
	Opening       decimal.Decimal `json:"opening"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Ending        decimal.Decimal `json:"ending"`
}

type trialBalanceResponse struct {
	Period            string                    `json:"period"`
	AsOf              string                    `json:"as_of"`
	Rows              []trialBalanceRowResponse `json:"rows"`
	TotalDebitNormal  decimal.Decimal           `json:"total_debit_normal"`
	TotalCreditNormal decimal.Decimal           `json:"total_credit_normal"`
	Balanced          bool                      `json:"balanced"`
}

func toTrialBalanceResponse(tb *ledger.TrialBalance) trialBalanceResponse {
	out := trialBalanceResponse{
		Period:            tb.Period.Name,
		AsOf:              tb.AsOf.Format(dateFormat),
		Rows:              make([]trialBalanceRowResponse, len(tb.Rows)),
		TotalDebitNormal:  tb.TotalDebitNormal,
		TotalCreditNormal: tb.TotalCreditNormal,
		Balanced:          tb.Balanced,
	}
	for i, r := range tb.Rows {
		out.Rows[i] = trialBalanceRowResponse{
			AccountID:     r.Account.ID,
			Code:          r.Account.Code,
			Name:          r.Account.Name,
			NormalBalance: string(r.Account.NormalBalance),
			Opening:       r.Opening,
			Debit:         r.Debit,
			Credit:        r.Credit,
			Ending:        r.Ending,
		}
	}
	return out
}

type processDueRequest struct {
	Now string `json:"now"`
}

type reportResponse struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func toReportResponse(r recurring.Report) reportResponse {
	return reportResponse{Processed: r.Processed, Succeeded: r.Succeeded, Failed: r.Failed, Skipped: r.Skipped}
}

// parseDate parses an optional YYYY-MM-DD value.
func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(dateFormat, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
