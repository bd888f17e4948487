// Package ledger answers read-only questions over posted journal entries:
// the general ledger per account and the trial balance per period.
// Balances are replayed from lines rather than read from accounts, so
// reports can be produced as of any date.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/period"
)

const dateFormat = "2006-01-02"

// Engine runs ledger queries.
type Engine struct {
	db        *gorm.DB
	log       *zap.Logger
	tolerance decimal.Decimal
}

// NewEngine creates a query Engine.
func NewEngine(db *gorm.DB, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{db: db, log: log, tolerance: decimal.New(1, -2)}
}

// postedLine is a journal line joined with its entry header.
type postedLine struct {
	EntryID          string
	Number           string
	Date             time.Time
	EntryDescription string
	LineDescription  string
	AccountID        string
	Debit            decimal.Decimal
	Credit           decimal.Decimal
	LineOrder        int
}

// postedLines returns the company's posted lines dated on or before to, in
// posting order.
func (e *Engine) postedLines(ctx context.Context, companyID, accountID string, to time.Time) ([]postedLine, error) {
	q := e.db.WithContext(ctx).
		Table("journal_lines AS l").
		Select("l.entry_id, e.number, e.date, e.description AS entry_description, l.description AS line_description, l.account_id, l.debit, l.credit, l.line_order").
		Joins("JOIN journal_entries AS e ON e.id = l.entry_id").
		Where("e.company_id = ? AND e.posted = ? AND e.date <= ?", companyID, true, to)
	if accountID != "" {
		q = q.Where("l.account_id = ?", accountID)
	}

	var rows []postedLine
	if err := q.Order("e.date, e.number, l.line_order").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading posted lines: %w", err)
	}
	return rows, nil
}

// scope loads the period and checks it belongs to companyID.
func scope(ctx context.Context, db *gorm.DB, companyID, periodID string) (*model.Period, error) {
	per, err := period.Load(ctx, db, periodID)
	if err != nil {
		return nil, err
	}
	if per.CompanyID != companyID {
		return nil, apperr.Invalid("period", per.Name, "period belongs to another company")
	}
	return per, nil
}

func (e *Engine) accountsFor(ctx context.Context, companyID, accountID string) ([]model.Account, error) {
	q := e.db.WithContext(ctx).Where("company_id = ?", companyID)
	if accountID != "" {
		q = q.Where("id = ?", accountID)
	}
	var accts []model.Account
	if err := q.Order("code").Find(&accts).Error; err != nil {
		return nil, fmt.Errorf("loading accounts: %w", err)
	}
	if accountID != "" && len(accts) == 0 {
		return nil, apperr.NotFound("account", accountID)
	}
	return accts, nil
}
