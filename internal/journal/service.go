package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/metrics"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/period"
	"github.com/cleared-dev/ledger/internal/store"
)

// Engine posts and deletes journal entries. It is the only writer of
// account balances.
type Engine struct {
	db        *gorm.DB
	authz     auth.Authorizer
	log       *zap.Logger
	metrics   *metrics.Metrics
	prefix    string
	tolerance decimal.Decimal
	retries   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics sets the engine's metrics sink.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithPrefix sets the display-number prefix.
func WithPrefix(prefix string) Option {
	return func(e *Engine) {
		if prefix != "" {
			e.prefix = prefix
		}
	}
}

// WithTolerance sets the allowed debit/credit difference.
func WithTolerance(tol decimal.Decimal) Option {
	return func(e *Engine) {
		if tol.IsPositive() {
			e.tolerance = tol
		}
	}
}

// WithRetries sets how many times a conflicting unit is attempted.
func WithRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retries = n
		}
	}
}

// NewEngine creates a journal Engine.
func NewEngine(db *gorm.DB, authz auth.Authorizer, opts ...Option) *Engine {
	e := &Engine{
		db:        db,
		authz:     authz,
		log:       zap.NewNop(),
		prefix:    "JE",
		tolerance: decimal.New(1, -2),
		retries:   5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LineInput is one requested line of an entry.
type LineInput struct {
	AccountID   string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// CreateEntryParams holds parameters for posting an entry.
type CreateEntryParams struct {
	CompanyID   string
	PeriodID    string
	Date        time.Time
	Description string
	Source      model.EntrySource // defaults to manual
	Lines       []LineInput
}

// CreateEntry validates and posts an entry in its own database transaction,
// retrying the whole unit when it loses an optimistic-lock race.
func (e *Engine) CreateEntry(ctx context.Context, identity auth.Identity, p CreateEntryParams) (*model.Entry, error) {
	if err := auth.Check(ctx, e.authz, identity, auth.ActionCreateEntry, p.CompanyID); err != nil {
		return nil, err
	}
	if verrs := ValidateLines(p.Lines, e.tolerance); len(verrs) > 0 {
		return nil, verrs
	}

	entry, err := store.Retry(ctx, e.retries, func() (*model.Entry, error) {
		var entry *model.Entry
		err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			entry, err = e.post(ctx, tx, identity, p)
			return err
		})
		if apperr.IsRetryable(err) {
			e.metrics.Conflict()
			e.log.Debug("posting conflict, retrying", zap.String("company", p.CompanyID), zap.Error(err))
		}
		return entry, err
	})
	if err != nil {
		return nil, err
	}

	e.metrics.EntryPosted(string(entry.Source))
	e.log.Info("entry posted",
		zap.String("company", entry.CompanyID),
		zap.String("number", entry.Number),
		zap.String("source", string(entry.Source)),
		zap.String("total", entry.TotalDebit.StringFixed(2)))
	return entry, nil
}

// PostTx posts an entry inside a transaction owned by the caller. The
// caller commits and handles conflict retries.
func (e *Engine) PostTx(ctx context.Context, tx *gorm.DB, identity auth.Identity, p CreateEntryParams) (*model.Entry, error) {
	if err := auth.Check(ctx, e.authz, identity, auth.ActionCreateEntry, p.CompanyID); err != nil {
		return nil, err
	}
	return e.post(ctx, tx, identity, p)
}

func (e *Engine) post(ctx context.Context, tx *gorm.DB, identity auth.Identity, p CreateEntryParams) (*model.Entry, error) {
	if p.Source == "" {
		p.Source = model.SourceManual
	}
	date := model.Day(p.Date)

	verrs := ValidateLines(p.Lines, e.tolerance)
	if !p.Source.Valid() {
		verrs = append(verrs, apperr.ValidationError{Rule: "source", Subject: string(p.Source), Description: fmt.Sprintf("unknown entry source %q", p.Source)})
	}

	per, err := period.Load(ctx, tx, p.PeriodID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		verrs = append(verrs, apperr.ValidationError{Rule: "period", Subject: p.PeriodID, Description: "period not found"})
	case err != nil:
		return nil, err
	default:
		verrs = append(verrs, validatePeriod(per, p.CompanyID, date)...)
	}

	accts, err := accounts.LoadForUpdate(ctx, tx, lineAccountIDs(p.Lines))
	if err != nil {
		return nil, err
	}
	verrs = append(verrs, ValidateAccounts(p.Lines, accts, p.CompanyID, p.Source)...)
	if len(verrs) > 0 {
		return nil, verrs
	}

	seq, err := nextSequence(ctx, tx, p.CompanyID, e.prefix, date.Year(), int(date.Month()))
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := &model.Entry{
		ID:          id.New(),
		CompanyID:   p.CompanyID,
		PeriodID:    per.ID,
		Number:      id.FormatEntryNumber(e.prefix, date.Year(), int(date.Month()), seq),
		Date:        date,
		Description: p.Description,
		Source:      p.Source,
		CreatedBy:   identity.ID,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
		Posted:      true,
		PostedAt:    &now,
	}

	// Lines on the same account chain off each other's balance.
	balances := make(map[string]decimal.Decimal, len(accts))
	for acctID, a := range accts {
		balances[acctID] = a.Balance
	}
	lines := make([]model.Line, len(p.Lines))
	for i, in := range p.Lines {
		a := accts[in.AccountID]
		before := balances[a.ID]
		after := a.NormalBalance.Apply(before, in.Debit, in.Credit)
		balances[a.ID] = after

		lines[i] = model.Line{
			ID:            id.New(),
			EntryID:       entry.ID,
			Order:         i + 1,
			AccountID:     a.ID,
			Description:   in.Description,
			Debit:         in.Debit,
			Credit:        in.Credit,
			BalanceBefore: before,
			BalanceAfter:  after,
		}
		entry.TotalDebit = entry.TotalDebit.Add(in.Debit)
		entry.TotalCredit = entry.TotalCredit.Add(in.Credit)
	}

	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(entry).Error; err != nil {
		if store.IsDuplicate(err) {
			return nil, fmt.Errorf("entry number %s taken: %w", entry.Number, apperr.ErrConflict)
		}
		return nil, fmt.Errorf("creating entry: %w", err)
	}
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(&lines).Error; err != nil {
		return nil, fmt.Errorf("creating entry lines: %w", err)
	}

	updated, err := writeBalances(ctx, tx, accts, balances)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		a := updated[lines[i].AccountID]
		lines[i].Account = &a
	}
	entry.Lines = lines
	return entry, nil
}

// DeleteEntry removes an entry and reverts each line's effect on its
// account. The owning period must not be closed.
func (e *Engine) DeleteEntry(ctx context.Context, identity auth.Identity, entryID string) error {
	entry, err := e.GetEntry(ctx, entryID)
	if err != nil {
		return err
	}
	if err := auth.Check(ctx, e.authz, identity, auth.ActionDeleteEntry, entry.CompanyID); err != nil {
		return err
	}

	_, err = store.Retry(ctx, e.retries, func() (struct{}, error) {
		err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return e.remove(ctx, tx, entryID)
		})
		if apperr.IsRetryable(err) {
			e.metrics.Conflict()
			e.log.Debug("delete conflict, retrying", zap.String("entry", entryID), zap.Error(err))
		}
		return struct{}{}, err
	})
	if err != nil {
		return err
	}

	e.metrics.EntryDeleted()
	e.log.Info("entry deleted",
		zap.String("company", entry.CompanyID),
		zap.String("number", entry.Number),
		zap.String("by", identity.ID))
	return nil
}

func (e *Engine) remove(ctx context.Context, tx *gorm.DB, entryID string) error {
	entry, err := loadEntry(ctx, tx, entryID)
	if err != nil {
		return err
	}

	per, err := period.Load(ctx, tx, entry.PeriodID)
	if err != nil {
		return err
	}
	if per.Status == model.PeriodClosed {
		return apperr.Invalid("period", per.Name, "period closed")
	}

	ids := make([]string, len(entry.Lines))
	for i, l := range entry.Lines {
		ids[i] = l.AccountID
	}
	accts, err := accounts.LoadForUpdate(ctx, tx, ids)
	if err != nil {
		return err
	}

	balances := make(map[string]decimal.Decimal, len(accts))
	for acctID, a := range accts {
		balances[acctID] = a.Balance
	}
	for _, l := range entry.Lines {
		if _, ok := accts[l.AccountID]; !ok {
			return apperr.NotFound("account", l.AccountID)
		}
		balances[l.AccountID] = balances[l.AccountID].Sub(l.Delta())
	}

	if _, err := writeBalances(ctx, tx, accts, balances); err != nil {
		return err
	}

	if err := tx.WithContext(ctx).Where("entry_id = ?", entry.ID).Delete(&model.Line{}).Error; err != nil {
		return fmt.Errorf("deleting lines of %s: %w", entry.Number, err)
	}
	if err := tx.WithContext(ctx).Where("id = ?", entry.ID).Delete(&model.Entry{}).Error; err != nil {
		return fmt.Errorf("deleting entry %s: %w", entry.Number, err)
	}
	err = tx.WithContext(ctx).Model(&model.Transaction{}).
		Where("entry_id = ?", entry.ID).
		Update("entry_id", nil).Error
	if err != nil {
		return fmt.Errorf("unlinking transactions of %s: %w", entry.Number, err)
	}
	return nil
}

// GetEntry returns an entry with its lines and their accounts.
func (e *Engine) GetEntry(ctx context.Context, entryID string) (*model.Entry, error) {
	return loadEntry(ctx, e.db, entryID)
}

// GetByNumber returns a company's entry by display number.
func (e *Engine) GetByNumber(ctx context.Context, companyID, number string) (*model.Entry, error) {
	var entry model.Entry
	err := e.db.WithContext(ctx).Where("company_id = ? AND number = ?", companyID, number).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("entry", number)
	}
	if err != nil {
		return nil, fmt.Errorf("loading entry %s: %w", number, err)
	}
	return loadEntry(ctx, e.db, entry.ID)
}

func loadEntry(ctx context.Context, db *gorm.DB, entryID string) (*model.Entry, error) {
	var entry model.Entry
	err := db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_order") }).
		Preload("Lines.Account").
		Where("id = ?", entryID).
		First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("entry", entryID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading entry %s: %w", entryID, err)
	}
	return &entry, nil
}

// writeBalances applies each account's new balance once, in ID order, and
// returns the accounts as they now stand.
func writeBalances(ctx context.Context, tx *gorm.DB, accts map[string]model.Account, balances map[string]decimal.Decimal) (map[string]model.Account, error) {
	ids := make([]string, 0, len(accts))
	for acctID := range accts {
		ids = append(ids, acctID)
	}
	sort.Strings(ids)

	updated := make(map[string]model.Account, len(accts))
	for _, acctID := range ids {
		a := accts[acctID]
		if err := accounts.UpdateBalance(ctx, tx, a, balances[acctID]); err != nil {
			return nil, err
		}
		a.Balance = balances[acctID]
		a.Version++
		updated[acctID] = a
	}
	return updated, nil
}

// nextSequence atomically increments the company's counter for the month
// and returns the new value.
func nextSequence(ctx context.Context, tx *gorm.DB, companyID, prefix string, year, month int) (int, error) {
	key := model.EntrySequence{CompanyID: companyID, Prefix: prefix, Year: year, Month: month}
	where := "company_id = ? AND prefix = ? AND year = ? AND month = ?"

	res := tx.WithContext(ctx).Model(&model.EntrySequence{}).
		Where(where, companyID, prefix, year, month).
		Update("last_value", gorm.Expr("last_value + 1"))
	if res.Error != nil {
		return 0, fmt.Errorf("incrementing entry sequence: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		key.LastValue = 1
		if err := tx.WithContext(ctx).Create(&key).Error; err != nil {
			if store.IsDuplicate(err) {
				return 0, fmt.Errorf("entry sequence %04d-%02d created concurrently: %w", year, month, apperr.ErrConflict)
			}
			return 0, fmt.Errorf("creating entry sequence: %w", err)
		}
		return 1, nil
	}

	var seq model.EntrySequence
	if err := tx.WithContext(ctx).Where(where, companyID, prefix, year, month).First(&seq).Error; err != nil {
		return 0, fmt.Errorf("reading entry sequence: %w", err)
	}
	return seq.LastValue, nil
}

func lineAccountIDs(lines []LineInput) []string {
	seen := make(map[string]bool, len(lines))
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.AccountID == "" || seen[l.AccountID] {
			continue
		}
		seen[l.AccountID] = true
		ids = append(ids, l.AccountID)
	}
	return ids
}
