package accounts

import (
	"context"

	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/model"
)

// DefaultChart returns the starter chart of accounts. Header rows group the
// postable accounts beneath them and never take manual entries.
func DefaultChart() []ChartAccount {
	return []ChartAccount{
		headerAccount("1000", "Assets", model.AccountTypeAsset),
		postable("1010", "Cash at Bank", model.AccountTypeAsset, "1000", "Primary operating account"),
		postable("1020", "Savings", model.AccountTypeAsset, "1000", "Savings account"),
		postable("1200", "Accounts Receivable", model.AccountTypeAsset, "1000", ""),
		headerAccount("2000", "Liabilities", model.AccountTypeLiability),
		postable("2010", "Credit Card", model.AccountTypeLiability, "2000", "Business credit card"),
		postable("2100", "Accounts Payable", model.AccountTypeLiability, "2000", ""),
		headerAccount("3000", "Equity", model.AccountTypeEquity),
		postable("3010", "Owner's Equity", model.AccountTypeEquity, "3000", ""),
		postable("3900", "Retained Earnings", model.AccountTypeEquity, "3000", ""),
		headerAccount("4000", "Revenue", model.AccountTypeRevenue),
		postable("4010", "Service Revenue", model.AccountTypeRevenue, "4000", ""),
		postable("4020", "Product Revenue", model.AccountTypeRevenue, "4000", ""),
		headerAccount("5000", "Expenses", model.AccountTypeExpense),
		postable("5010", "Advertising & Marketing", model.AccountTypeExpense, "5000", "Advertising costs"),
		postable("5020", "Software & SaaS", model.AccountTypeExpense, "5000", "Software subscriptions"),
		postable("5030", "Office Supplies", model.AccountTypeExpense, "5000", ""),
		postable("5040", "Professional Services", model.AccountTypeExpense, "5000", "Legal, accounting, consulting"),
		postable("5050", "Rent", model.AccountTypeExpense, "5000", "Office rent"),
	}
}

func headerAccount(code, name string, t model.AccountType) ChartAccount {
	return ChartAccount{Code: code, Name: name, Type: t, NormalBalance: t.NormalBalance(), Active: true}
}

func postable(code, name string, t model.AccountType, parent, desc string) ChartAccount {
	return ChartAccount{
		Code:             code,
		Name:             name,
		Type:             t,
		NormalBalance:    t.NormalBalance(),
		ParentCode:       parent,
		AllowManualEntry: true,
		Active:           true,
		Description:      desc,
	}
}

// SeedDefaultChart creates DefaultChart for a company.
func (r *Registry) SeedDefaultChart(ctx context.Context, identity auth.Identity, companyID string) ([]model.Account, error) {
	return r.Seed(ctx, identity, companyID, DefaultChart())
}
