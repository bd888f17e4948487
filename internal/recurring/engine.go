// Package recurring materializes recurring templates into business
// transactions and, when auto-posting, journal entries. Each due template is
// processed in isolation: one template's failure is recorded in its history
// and never stops the others.
package recurring

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cleared-dev/ledger/internal/accounts"
	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/metrics"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/period"
	"github.com/cleared-dev/ledger/internal/store"
)

// errNotDue reports that a template was advanced or deactivated by someone
// else between selection and execution.
var errNotDue = errors.New("template no longer due")

// Engine runs recurring templates.
type Engine struct {
	db        *gorm.DB
	journal   *journal.Engine
	authz     auth.Authorizer
	identity  auth.Identity
	log       *zap.Logger
	metrics   *metrics.Metrics
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

// WithIdentity sets the identity ProcessDue acts as.
func WithIdentity(identity auth.Identity) Option {
	return func(e *Engine) { e.identity = identity }
}

// WithTolerance sets the balance tolerance applied to template lines.
func WithTolerance(tol decimal.Decimal) Option {
	return func(e *Engine) {
		if tol.IsPositive() {
			e.tolerance = tol
		}
	}
}

// WithRetries sets how many times a conflicting execution is attempted.
func WithRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retries = n
		}
	}
}

// NewEngine creates a recurring Engine posting through j.
func NewEngine(db *gorm.DB, j *journal.Engine, authz auth.Authorizer, opts ...Option) *Engine {
	e := &Engine{
		db:        db,
		journal:   j,
		authz:     authz,
		identity:  auth.System("system:recurring"),
		log:       zap.NewNop(),
		tolerance: decimal.New(1, -2),
		retries:   5,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Report summarizes one ProcessDue pass.
type Report struct {
	Processed int
	Succeeded int
	Failed    int
	Skipped   int // picked up elsewhere first
}

// ExecuteOne runs tmpl once for its next run date in a single database
// transaction and returns the success history record. It does not advance
// the schedule. Any failure is returned and nothing is written.
func (e *Engine) ExecuteOne(ctx context.Context, tmpl model.Template, identity auth.Identity) (*model.Execution, error) {
	if err := auth.Check(ctx, e.authz, identity, auth.ActionExecuteRecurring, tmpl.CompanyID); err != nil {
		return nil, err
	}
	return store.Retry(ctx, e.retries, func() (*model.Execution, error) {
		var exec *model.Execution
		err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			exec, err = e.execute(ctx, tx, tmpl, identity)
			return err
		})
		return exec, err
	})
}

// execute materializes tmpl inside tx.
func (e *Engine) execute(ctx context.Context, tx *gorm.DB, tmpl model.Template, identity auth.Identity) (*model.Execution, error) {
	scheduled := model.Day(tmpl.NextRunDate)

	if len(tmpl.Lines) == 0 {
		return nil, apperr.Invalid("template", tmpl.Name, "template has no lines")
	}
	if err := checkAccounts(ctx, tx, tmpl.CompanyID, templateLines(tmpl.Lines)); err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, l := range tmpl.Lines {
		total = total.Add(l.Amount())
	}

	txn := &model.Transaction{
		ID:          id.New(),
		CompanyID:   tmpl.CompanyID,
		TemplateID:  &tmpl.ID,
		Date:        scheduled,
		Description: description(tmpl),
		Total:       total,
		CreatedBy:   identity.ID,
	}
	txnLines := make([]model.TransactionLine, len(tmpl.Lines))
	for i, l := range tmpl.Lines {
		txnLines[i] = model.TransactionLine{
			ID:            id.New(),
			TransactionID: txn.ID,
			Order:         i + 1,
			AccountID:     l.AccountID,
			Description:   l.Description,
			Debit:         l.Debit,
			Credit:        l.Credit,
		}
	}

	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(txn).Error; err != nil {
		return nil, fmt.Errorf("creating transaction: %w", err)
	}
	if err := tx.WithContext(ctx).Create(&txnLines).Error; err != nil {
		return nil, fmt.Errorf("creating transaction lines: %w", err)
	}

	exec := &model.Execution{
		ID:            id.New(),
		TemplateID:    tmpl.ID,
		ScheduledDate: scheduled,
		ProcessedAt:   time.Now().UTC(),
		Status:        model.ExecutionSuccess,
		TransactionID: &txn.ID,
	}

	if tmpl.AutoPost {
		per, err := period.Covering(ctx, tx, tmpl.CompanyID, scheduled)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.Invalid("period", scheduled.Format(dateFormat), "no open period covers the run date")
		}
		if err != nil {
			return nil, err
		}
		entry, err := e.journal.PostTx(ctx, tx, identity, journal.CreateEntryParams{
			CompanyID:   tmpl.CompanyID,
			PeriodID:    per.ID,
			Date:        scheduled,
			Description: description(tmpl),
			Source:      model.SourceRecurring,
			Lines:       templateLines(tmpl.Lines),
		})
		if err != nil {
			return nil, err
		}
		err = tx.WithContext(ctx).Model(&model.Transaction{}).Where("id = ?", txn.ID).Update("entry_id", entry.ID).Error
		if err != nil {
			return nil, fmt.Errorf("linking entry %s: %w", entry.Number, err)
		}
		exec.EntryID = &entry.ID
	}

	if err := tx.WithContext(ctx).Create(exec).Error; err != nil {
		return nil, fmt.Errorf("recording execution: %w", err)
	}
	return exec, nil
}

// checkAccounts applies the journal's account rules to the template lines so
// a materialized transaction is always postable, whether or not it auto-posts.
func checkAccounts(ctx context.Context, tx *gorm.DB, companyID string, lines []journal.LineInput) error {
	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.AccountID
	}
	accts, err := accounts.LoadForUpdate(ctx, tx, ids)
	if err != nil {
		return err
	}
	if errs := journal.ValidateAccounts(lines, accts, companyID, model.SourceRecurring); len(errs) > 0 {
		return errs
	}
	return nil
}

func description(tmpl model.Template) string {
	if tmpl.Description != "" {
		return tmpl.Description
	}
	return tmpl.Name
}

// ProcessDue executes every active template due on or before now. Successes
// advance the schedule in the same transaction as the execution; failures
// are recorded and leave the next run date unchanged, so they are retried on
// the next pass.
func (e *Engine) ProcessDue(ctx context.Context, now time.Time) (Report, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveProcessDue(time.Since(start)) }()

	today := model.Day(now)
	var due []model.Template
	err := withLines(e.db.WithContext(ctx)).
		Where("active = ? AND next_run_date <= ? AND (end_date IS NULL OR end_date >= ?)", true, today, today).
		Order("next_run_date, id").
		Find(&due).Error
	if err != nil {
		return Report{}, fmt.Errorf("selecting due templates: %w", err)
	}

	var report Report
	for _, tmpl := range due {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		report.Processed++

		exec, err := e.runDue(ctx, tmpl)
		switch {
		case errors.Is(err, errNotDue):
			report.Skipped++
			e.log.Debug("template skipped", zap.String("template", tmpl.ID))
		case err != nil:
			report.Failed++
			e.metrics.Execution(string(model.ExecutionFailed))
			e.recordFailure(ctx, tmpl, err)
		default:
			report.Succeeded++
			e.metrics.Execution(string(model.ExecutionSuccess))
			if exec.EntryID != nil {
				e.metrics.EntryPosted(string(model.SourceRecurring))
			}
			e.log.Info("template executed",
				zap.String("template", tmpl.ID),
				zap.String("name", tmpl.Name),
				zap.Time("scheduled", exec.ScheduledDate))
		}
	}

	e.log.Info("recurring pass complete",
		zap.Int("processed", report.Processed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped))
	return report, nil
}

// runDue executes and advances one template. Panics are turned into errors.
func (e *Engine) runDue(ctx context.Context, tmpl model.Template) (exec *model.Execution, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic executing template %s: %v", tmpl.ID, r)
		}
	}()

	if err := auth.Check(ctx, e.authz, e.identity, auth.ActionExecuteRecurring, tmpl.CompanyID); err != nil {
		return nil, err
	}

	return store.Retry(ctx, e.retries, func() (*model.Execution, error) {
		var exec *model.Execution
		err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var cur model.Template
			if err := tx.Where("id = ?", tmpl.ID).First(&cur).Error; err != nil {
				return fmt.Errorf("reloading template %s: %w", tmpl.ID, err)
			}
			if !cur.Active || !model.Day(cur.NextRunDate).Equal(model.Day(tmpl.NextRunDate)) {
				return errNotDue
			}

			var err error
			exec, err = e.execute(ctx, tx, tmpl, e.identity)
			if err != nil {
				return err
			}
			return advance(ctx, tx, cur)
		})
		return exec, err
	})
}

// advance moves the schedule forward after a successful run and deactivates
// the template once it is exhausted.
func advance(ctx context.Context, tx *gorm.DB, cur model.Template) error {
	next := CalculateNextRun(model.Day(cur.NextRunDate), cur.Frequency, cur.IntervalDays)
	active := true
	if cur.MaxOccurrences != nil && cur.SuccessCount+1 >= *cur.MaxOccurrences {
		active = false
	}
	if cur.EndDate != nil && next.After(model.Day(*cur.EndDate)) {
		active = false
	}

	res := tx.WithContext(ctx).Model(&model.Template{}).
		Where("id = ? AND next_run_date = ?", cur.ID, cur.NextRunDate).
		Updates(map[string]any{
			"next_run_date":   next,
			"active":          active,
			"execution_count": gorm.Expr("execution_count + 1"),
			"success_count":   gorm.Expr("success_count + 1"),
			"last_run_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("advancing template %s: %w", cur.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("template %s: %w", cur.ID, apperr.ErrConflict)
	}
	return nil
}

// recordFailure writes a failed history row and bumps the failure counters
// without touching the next run date.
func (e *Engine) recordFailure(ctx context.Context, tmpl model.Template, cause error) {
	now := time.Now().UTC()
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exec := &model.Execution{
			ID:            id.New(),
			TemplateID:    tmpl.ID,
			ScheduledDate: model.Day(tmpl.NextRunDate),
			ProcessedAt:   now,
			Status:        model.ExecutionFailed,
			ErrorMessage:  cause.Error(),
		}
		if err := tx.Create(exec).Error; err != nil {
			return fmt.Errorf("recording failure: %w", err)
		}
		return tx.Model(&model.Template{}).
			Where("id = ?", tmpl.ID).
			Updates(map[string]any{
				"execution_count": gorm.Expr("execution_count + 1"),
				"failure_count":   gorm.Expr("failure_count + 1"),
				"last_run_at":     now,
			}).Error
	})

	fields := []zap.Field{
		zap.String("template", tmpl.ID),
		zap.String("name", tmpl.Name),
		zap.Time("scheduled", model.Day(tmpl.NextRunDate)),
		zap.Int("failures", tmpl.FailureCount+1),
		zap.NamedError("cause", cause),
	}
	if err != nil {
		e.log.Error("recording template failure", append(fields, zap.Error(err))...)
		return
	}
	e.log.Warn("template execution failed; will retry next pass", fields...)
}
