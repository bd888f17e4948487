package model

import "time"

// PeriodStatus is the lifecycle state of an accounting period.
type PeriodStatus string

const (
	PeriodOpen   PeriodStatus = "open"
	PeriodClosed PeriodStatus = "closed"
)

// Period is a bounded, inclusive date range gating postings for a company.
type Period struct {
	ID        string       `gorm:"primaryKey;type:varchar(36)"`
	CompanyID string       `gorm:"type:varchar(64);not null;index"`
	Name      string       `gorm:"type:varchar(64)"`
	StartDate time.Time    `gorm:"not null"`
	EndDate   time.Time    `gorm:"not null"`
	Status    PeriodStatus `gorm:"type:varchar(8);not null"`
	ClosedAt  *time.Time
	CreatedAt time.Time
}

func (Period) TableName() string {
	return "accounting_periods"
}

// Contains reports whether date falls within [StartDate, EndDate] by calendar day.
func (p Period) Contains(date time.Time) bool {
	d := Day(date)
	return !d.Before(Day(p.StartDate)) && !d.After(Day(p.EndDate))
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
