package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the business record a recurring template materializes
// before (optionally) posting it to the ledger.
type Transaction struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)"`
	CompanyID   string          `gorm:"type:varchar(64);not null;index"`
	TemplateID  *string         `gorm:"type:varchar(36);index"`
	Date        time.Time       `gorm:"not null"`
	Description string          `gorm:"type:text"`
	Total       decimal.Decimal `gorm:"type:decimal(20,4);not null"` // sum of debit-or-credit per line
	EntryID     *string         `gorm:"type:varchar(36)"`
	CreatedBy   string          `gorm:"type:varchar(64)"`
	CreatedAt   time.Time

	Lines []TransactionLine `gorm:"foreignKey:TransactionID"`
}

func (Transaction) TableName() string {
	return "transactions"
}

// TransactionLine is one account line of a business transaction.
type TransactionLine struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)"`
	TransactionID string          `gorm:"type:varchar(36);not null;index"`
	Order         int             `gorm:"column:line_order;not null"`
	AccountID     string          `gorm:"type:varchar(36);not null"`
	Description   string          `gorm:"type:text"`
	Debit         decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Credit        decimal.Decimal `gorm:"type:decimal(20,4);not null"`
}

func (TransactionLine) TableName() string {
	return "transaction_lines"
}
