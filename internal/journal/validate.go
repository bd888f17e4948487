package journal

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/period"
)

const dateFormat = "2006-01-02"

// ValidateLines enforces the rules that need no stored state: at least two
// lines, exactly one positive side per line, two decimal places, and
// debits equal to credits within tolerance.
func ValidateLines(lines []LineInput, tolerance decimal.Decimal) apperr.ValidationErrors {
	var errs apperr.ValidationErrors

	if len(lines) < 2 {
		errs = append(errs, apperr.ValidationError{
			Rule:        "min-lines",
			Description: fmt.Sprintf("entry needs at least 2 lines, got %d", len(lines)),
		})
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, l := range lines {
		subject := fmt.Sprintf("line %d", i+1)

		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			errs = append(errs, apperr.ValidationError{Rule: "one-side", Subject: subject, Description: "amounts must not be negative"})
		} else if l.Debit.IsPositive() == l.Credit.IsPositive() {
			errs = append(errs, apperr.ValidationError{Rule: "one-side", Subject: subject, Description: "line must have exactly one of debit or credit"})
		}

		if !l.Debit.Equal(l.Debit.Round(2)) {
			errs = append(errs, apperr.ValidationError{Rule: "precision", Subject: subject, Description: fmt.Sprintf("debit %s has more than 2 decimal places", l.Debit)})
		}
		if !l.Credit.Equal(l.Credit.Round(2)) {
			errs = append(errs, apperr.ValidationError{Rule: "precision", Subject: subject, Description: fmt.Sprintf("credit %s has more than 2 decimal places", l.Credit)})
		}

		if l.AccountID == "" {
			errs = append(errs, apperr.ValidationError{Rule: "account", Subject: subject, Description: "account is required"})
		}

		totalDebit = totalDebit.Add(l.Debit)
		totalCredit = totalCredit.Add(l.Credit)
	}

	if !totalDebit.Sub(totalCredit).Abs().LessThan(tolerance) {
		errs = append(errs, apperr.ValidationError{
			Rule:        "balanced",
			Description: fmt.Sprintf("unbalanced entry: debits (%s) != credits (%s)", totalDebit.StringFixed(2), totalCredit.StringFixed(2)),
		})
	}

	return errs
}

// validatePeriod checks that per is open for the company and covers date.
func validatePeriod(per *model.Period, companyID string, date time.Time) apperr.ValidationErrors {
	var errs apperr.ValidationErrors
	switch {
	case per.CompanyID != companyID:
		errs = append(errs, apperr.ValidationError{Rule: "period", Subject: per.Name, Description: "period belongs to another company"})
	case per.Status != model.PeriodOpen:
		errs = append(errs, apperr.ValidationError{Rule: "period", Subject: per.Name, Description: "period closed"})
	case !period.IsOpen(*per, date):
		errs = append(errs, apperr.ValidationError{
			Rule:        "period",
			Subject:     per.Name,
			Description: fmt.Sprintf("date %s outside period %s..%s", date.Format(dateFormat), per.StartDate.Format(dateFormat), per.EndDate.Format(dateFormat)),
		})
	}
	return errs
}

// ValidateAccounts checks every referenced account against the chart. Lines
// without an account are skipped; ValidateLines reports them.
func ValidateAccounts(lines []LineInput, accts map[string]model.Account, companyID string, source model.EntrySource) apperr.ValidationErrors {
	var errs apperr.ValidationErrors
	for i, l := range lines {
		if l.AccountID == "" {
			continue
		}
		subject := fmt.Sprintf("line %d", i+1)
		a, ok := accts[l.AccountID]
		switch {
		case !ok:
			errs = append(errs, apperr.ValidationError{Rule: "account", Subject: subject, Description: fmt.Sprintf("account %s not found", l.AccountID)})
		case a.CompanyID != companyID:
			errs = append(errs, apperr.ValidationError{Rule: "account", Subject: subject, Description: fmt.Sprintf("account %s belongs to another company", a.Code)})
		case !a.Active:
			errs = append(errs, apperr.ValidationError{Rule: "account", Subject: subject, Description: fmt.Sprintf("account %s is inactive", a.Code)})
		case a.Header:
			errs = append(errs, apperr.ValidationError{Rule: "account", Subject: subject, Description: fmt.Sprintf("account %s is a header account", a.Code)})
		case source == model.SourceManual && !a.AllowManualEntry:
			errs = append(errs, apperr.ValidationError{Rule: "account", Subject: subject, Description: fmt.Sprintf("account %s does not allow manual entries", a.Code)})
		}
	}
	return errs
}
