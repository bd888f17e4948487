package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/model"
)

var tol = dec("0.01")

func pair(debitAcct, creditAcct, amount string) []LineInput {
	return []LineInput{
		{AccountID: debitAcct, Debit: dec(amount)},
		{AccountID: creditAcct, Credit: dec(amount)},
	}
}

func rules(errs apperr.ValidationErrors) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Rule
	}
	return out
}

func TestValidate_Balanced(t *testing.T) {
	assert.Empty(t, ValidateLines(pair("x", "y", "100.00"), tol))
}

func TestValidate_SplitLines(t *testing.T) {
	lines := []LineInput{
		{AccountID: "rent", Debit: dec("700.00")},
		{AccountID: "ads", Debit: dec("300.00")},
		{AccountID: "cash", Credit: dec("1000.00")},
	}
	assert.Empty(t, ValidateLines(lines, tol))
}

func TestValidate_Unbalanced(t *testing.T) {
	lines := []LineInput{
		{AccountID: "x", Debit: dec("100.00")},
		{AccountID: "y", Credit: dec("99.99")},
	}
	errs := ValidateLines(lines, tol)
	require.Len(t, errs, 1)
	assert.Equal(t, "balanced", errs[0].Rule)
	assert.Contains(t, errs[0].Error(), "unbalanced entry")
}

func TestValidate_MinLines(t *testing.T) {
	errs := ValidateLines([]LineInput{{AccountID: "x", Debit: dec("1")}}, tol)
	assert.Contains(t, rules(errs), "min-lines")

	errs = ValidateLines(nil, tol)
	assert.Contains(t, rules(errs), "min-lines")
}

func TestValidate_OneSide(t *testing.T) {
	tests := []struct {
		name string
		line LineInput
	}{
		{"both sides", LineInput{AccountID: "x", Debit: dec("5"), Credit: dec("5")}},
		{"neither side", LineInput{AccountID: "x"}},
		{"negative debit", LineInput{AccountID: "x", Debit: dec("-5")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := []LineInput{tt.line, {AccountID: "y", Credit: dec("5")}}
			assert.Contains(t, rules(ValidateLines(lines, tol)), "one-side")
		})
	}
}

func TestValidate_Precision(t *testing.T) {
	errs := ValidateLines(pair("x", "y", "10.005"), tol)
	assert.Contains(t, rules(errs), "precision")

	assert.Empty(t, ValidateLines(pair("x", "y", "10.500"), tol), "trailing zeros are fine")
}

func TestValidate_MissingAccount(t *testing.T) {
	errs := ValidateLines(pair("", "y", "1.00"), tol)
	assert.Equal(t, []string{"account"}, rules(errs))
}

func TestValidateAccounts(t *testing.T) {
	accts := map[string]model.Account{
		"ok":       {ID: "ok", Code: "1010", CompanyID: "acme", Active: true, AllowManualEntry: true},
		"inactive": {ID: "inactive", Code: "1020", CompanyID: "acme", AllowManualEntry: true},
		"header":   {ID: "header", Code: "1000", CompanyID: "acme", Active: true, Header: true},
		"auto":     {ID: "auto", Code: "1300", CompanyID: "acme", Active: true},
		"other":    {ID: "other", Code: "1010", CompanyID: "globex", Active: true, AllowManualEntry: true},
	}

	tests := []struct {
		acct    string
		source  model.EntrySource
		wantErr bool
	}{
		{"ok", model.SourceManual, false},
		{"missing", model.SourceManual, true},
		{"inactive", model.SourceManual, true},
		{"header", model.SourceRecurring, true},
		{"auto", model.SourceManual, true},
		{"auto", model.SourceRecurring, false},
		{"other", model.SourceManual, true},
	}
	for _, tt := range tests {
		t.Run(tt.acct+"/"+string(tt.source), func(t *testing.T) {
			errs := ValidateAccounts(pair(tt.acct, "ok", "1.00"), accts, "acme", tt.source)
			assert.Equal(t, tt.wantErr, len(errs) > 0, "%v", errs)
		})
	}
}

func TestValidatePeriod(t *testing.T) {
	jan := &model.Period{Name: "2024-01", CompanyID: "acme", Status: model.PeriodOpen, StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 31)}

	assert.Empty(t, validatePeriod(jan, "acme", date(2024, 1, 31)))
	assert.NotEmpty(t, validatePeriod(jan, "acme", date(2024, 2, 1)))
	assert.NotEmpty(t, validatePeriod(jan, "globex", date(2024, 1, 10)))

	closed := *jan
	closed.Status = model.PeriodClosed
	errs := validatePeriod(&closed, "acme", date(2024, 1, 10))
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Description, "period closed")
}
