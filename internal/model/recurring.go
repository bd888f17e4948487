package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a recurring template fires.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
	FrequencyCustom    Frequency = "custom" // every IntervalDays days
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly, FrequencyCustom:
		return true
	}
	return false
}

// Template is a recurring transaction definition.
type Template struct {
	ID             string    `gorm:"primaryKey;type:varchar(36)"`
	CompanyID      string    `gorm:"type:varchar(64);not null;index"`
	Name           string    `gorm:"type:varchar(128);not null"`
	Description    string    `gorm:"type:text"`
	Frequency      Frequency `gorm:"type:varchar(16);not null"`
	IntervalDays   *int
	StartDate      time.Time `gorm:"not null"`
	EndDate        *time.Time
	MaxOccurrences *int
	AutoPost       bool      `gorm:"not null"`
	NextRunDate    time.Time `gorm:"not null;index"`
	Active         bool      `gorm:"not null;index"`
	ExecutionCount int       `gorm:"not null"` // attempted
	SuccessCount   int       `gorm:"not null"`
	FailureCount   int       `gorm:"not null"`
	LastRunAt      *time.Time
	CreatedBy      string `gorm:"type:varchar(64)"`
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Lines []TemplateLine `gorm:"foreignKey:TemplateID"`
}

func (Template) TableName() string {
	return "recurring_templates"
}

// TemplateLine is a line of a template. AccountID is not a foreign key:
// accounts are resolved at execution time.
type TemplateLine struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)"`
	TemplateID  string          `gorm:"type:varchar(36);not null;index"`
	Order       int             `gorm:"column:line_order;not null"`
	AccountID   string          `gorm:"type:varchar(36);not null"`
	Description string          `gorm:"type:text"`
	Debit       decimal.Decimal `gorm:"type:decimal(20,4);not null"`
	Credit      decimal.Decimal `gorm:"type:decimal(20,4);not null"`
}

func (TemplateLine) TableName() string {
	return "recurring_template_lines"
}

// Amount returns the debit if nonzero, else the credit.
func (l TemplateLine) Amount() decimal.Decimal {
	if !l.Debit.IsZero() {
		return l.Debit
	}
	return l.Credit
}

// ExecutionStatus is the outcome of one template execution.
type ExecutionStatus string

const (
	ExecutionSuccess ExecutionStatus = "success"
	ExecutionFailed  ExecutionStatus = "failed"
)

// Execution is an append-only history row for a template run.
type Execution struct {
	ID            string          `gorm:"primaryKey;type:varchar(36)"`
	TemplateID    string          `gorm:"type:varchar(36);not null;index"`
	ScheduledDate time.Time       `gorm:"not null"`
	ProcessedAt   time.Time       `gorm:"not null"`
	Status        ExecutionStatus `gorm:"type:varchar(8);not null"`
	ErrorMessage  string          `gorm:"type:text"`
	EntryID       *string         `gorm:"type:varchar(36)"`
	TransactionID *string         `gorm:"type:varchar(36)"`
}

func (Execution) TableName() string {
	return "recurring_executions"
}
