package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "asset"
	AccountTypeLiability AccountType = "liability"
	AccountTypeEquity    AccountType = "equity"
	AccountTypeRevenue   AccountType = "revenue"
	AccountTypeExpense   AccountType = "expense"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// NormalBalance returns the conventional direction for the type.
func (t AccountType) NormalBalance() NormalBalance {
	if t == AccountTypeAsset || t == AccountTypeExpense {
		return NormalDebit
	}
	return NormalCredit
}

// NormalBalance is the side on which an account increases.
type NormalBalance string

const (
	NormalDebit  NormalBalance = "debit"
	NormalCredit NormalBalance = "credit"
)

// Valid reports whether n is debit or credit.
func (n NormalBalance) Valid() bool {
	return n == NormalDebit || n == NormalCredit
}

// Apply returns the balance after posting debit and credit against old.
func (n NormalBalance) Apply(old, debit, credit decimal.Decimal) decimal.Decimal {
	if n == NormalCredit {
		return old.Add(credit).Sub(debit)
	}
	return old.Add(debit).Sub(credit)
}

// Account is a row in the chart of accounts.
type Account struct {
	ID               string          `gorm:"primaryKey;type:varchar(36)"`
	CompanyID        string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_accounts_company_code"`
	Code             string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_accounts_company_code"`
	Name             string          `gorm:"type:varchar(128);not null"`
	Type             AccountType     `gorm:"type:varchar(16);not null"`
	NormalBalance    NormalBalance   `gorm:"type:varchar(8);not null"`
	Balance          decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Version          int64           `gorm:"not null"` // optimistic lock
	Active           bool            `gorm:"not null"`
	AllowManualEntry bool            `gorm:"not null"`
	Header           bool            `gorm:"not null"` // has children; never posted to directly
	ParentID         *string         `gorm:"type:varchar(36);index"`
	Level            int             `gorm:"not null"`
	Description      string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (Account) TableName() string {
	return "accounts"
}
