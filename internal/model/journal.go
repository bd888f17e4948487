package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntrySource records which flow produced a journal entry.
type EntrySource string

const (
	SourceManual    EntrySource = "manual"
	SourceRecurring EntrySource = "recurring"
	SourceSystem    EntrySource = "system"
)

// Valid reports whether s is a known source.
func (s EntrySource) Valid() bool {
	switch s {
	case SourceManual, SourceRecurring, SourceSystem:
		return true
	}
	return false
}

// Entry is a posted journal entry. TotalDebit equals TotalCredit.
type Entry struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)"`
	CompanyID   string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_entries_company_number;index"`
	PeriodID    string          `gorm:"type:varchar(36);not null;index"`
	Number      string          `gorm:"type:varchar(32);not null;uniqueIndex:idx_entries_company_number"`
	Date        time.Time       `gorm:"not null;index"`
	Description string          `gorm:"type:text"`
	Source      EntrySource     `gorm:"type:varchar(16);not null"`
	CreatedBy   string          `gorm:"type:varchar(64)"`
	TotalDebit  decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	TotalCredit decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Posted      bool            `gorm:"not null"`
	PostedAt    *time.Time
	CreatedAt   time.Time

	Lines []Line `gorm:"foreignKey:EntryID"`
}

func (Entry) TableName() string {
	return "journal_entries"
}

// Balanced reports whether debits and credits differ by less than tolerance.
func (e Entry) Balanced(tolerance decimal.Decimal) bool {
	return e.TotalDebit.Sub(e.TotalCredit).Abs().LessThan(tolerance)
}

// Line is one side of a journal entry against a single account.
type Line struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)"`
	EntryID       string          `gorm:"type:varchar(36);not null;index"`
	Order         int             `gorm:"column:line_order;not null"`
	AccountID     string          `gorm:"type:varchar(36);not null;index"`
	Description   string          `gorm:"type:text"`
	Debit         decimal.Decimal `gorm:"type:decimal(20,4);not null"` // zero if credit side
	Credit        decimal.Decimal `gorm:"type:decimal(20,4);not null"` // zero if debit side
	BalanceBefore decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	BalanceAfter  decimal.Decimal `gorm:"type:decimal(20,4);not null"`

	Account *Account `gorm:"foreignKey:AccountID"`
}

func (Line) TableName() string {
	return "journal_lines"
}

// Delta is the change this line made to its account's running balance.
func (l Line) Delta() decimal.Decimal {
	return l.BalanceAfter.Sub(l.BalanceBefore)
}

// EntrySequence is the per-company, per-month display-number counter.
type EntrySequence struct {
	CompanyID string `gorm:"primaryKey;type:varchar(64)"`
	Prefix    string `gorm:"primaryKey;type:varchar(16)"`
	Year      int    `gorm:"primaryKey;autoIncrement:false"`
	Month     int    `gorm:"primaryKey;autoIncrement:false"`
	LastValue int    `gorm:"not null"`
}

func (EntrySequence) TableName() string {
	return "entry_sequences"
}
