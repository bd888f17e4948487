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

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/journal"
	"github.com/cleared-dev/ledger/internal/model"
)

// TemplateLineInput is one requested line of a template.
type TemplateLineInput struct {
	AccountID   string
	Description string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
}

// CreateTemplateParams holds parameters for creating a template.
type CreateTemplateParams struct {
	CompanyID      string
	Name           string
	Description    string
	Frequency      model.Frequency
	IntervalDays   *int
	StartDate      time.Time
	EndDate        *time.Time
	MaxOccurrences *int
	AutoPost       bool
	Lines          []TemplateLineInput
}

// CreateTemplate validates and stores an active template whose first run
// is its start date. Account references are resolved at execution time.
func (e *Engine) CreateTemplate(ctx context.Context, identity auth.Identity, p CreateTemplateParams) (*model.Template, error) {
	if err := auth.Check(ctx, e.authz, identity, auth.ActionManageRecurring, p.CompanyID); err != nil {
		return nil, err
	}
	if verrs := validateTemplate(p, e.tolerance); len(verrs) > 0 {
		return nil, verrs
	}

	start := model.Day(p.StartDate)
	tmpl := &model.Template{
		ID:             id.New(),
		CompanyID:      p.CompanyID,
		Name:           p.Name,
		Description:    p.Description,
		Frequency:      p.Frequency,
		IntervalDays:   p.IntervalDays,
		StartDate:      start,
		MaxOccurrences: p.MaxOccurrences,
		AutoPost:       p.AutoPost,
		NextRunDate:    start,
		Active:         true,
		CreatedBy:      identity.ID,
	}
	if p.EndDate != nil {
		end := model.Day(*p.EndDate)
		tmpl.EndDate = &end
	}

	lines := make([]model.TemplateLine, len(p.Lines))
	for i, l := range p.Lines {
		lines[i] = model.TemplateLine{
			ID:          id.New(),
			TemplateID:  tmpl.ID,
			Order:       i + 1,
			AccountID:   l.AccountID,
			Description: l.Description,
			Debit:       l.Debit,
			Credit:      l.Credit,
		}
	}

	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(tmpl).Error; err != nil {
			return fmt.Errorf("creating template %s: %w", p.Name, err)
		}
		if err := tx.Create(&lines).Error; err != nil {
			return fmt.Errorf("creating template lines: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	tmpl.Lines = lines

	e.log.Info("recurring template created",
		zap.String("company", tmpl.CompanyID),
		zap.String("template", tmpl.ID),
		zap.String("name", tmpl.Name),
		zap.String("frequency", string(tmpl.Frequency)),
		zap.Time("next_run", tmpl.NextRunDate))
	return tmpl, nil
}

func validateTemplate(p CreateTemplateParams, tolerance decimal.Decimal) apperr.ValidationErrors {
	var errs apperr.ValidationErrors
	if p.CompanyID == "" {
		errs = append(errs, apperr.ValidationError{Rule: "company", Subject: p.Name, Description: "company is required"})
	}
	if p.Name == "" {
		errs = append(errs, apperr.ValidationError{Rule: "name", Description: "template name is required"})
	}
	if !p.Frequency.Valid() {
		errs = append(errs, apperr.ValidationError{Rule: "frequency", Subject: p.Name, Description: fmt.Sprintf("unknown frequency %q", p.Frequency)})
	}
	if p.IntervalDays != nil && *p.IntervalDays <= 0 {
		errs = append(errs, apperr.ValidationError{Rule: "interval", Subject: p.Name, Description: "interval days must be positive"})
	}
	if p.StartDate.IsZero() {
		errs = append(errs, apperr.ValidationError{Rule: "start-date", Subject: p.Name, Description: "start date is required"})
	}
	if p.EndDate != nil && model.Day(*p.EndDate).Before(model.Day(p.StartDate)) {
		errs = append(errs, apperr.ValidationError{Rule: "end-date", Subject: p.Name, Description: "end date is before start date"})
	}
	if p.MaxOccurrences != nil && *p.MaxOccurrences <= 0 {
		errs = append(errs, apperr.ValidationError{Rule: "max-occurrences", Subject: p.Name, Description: "max occurrences must be positive"})
	}

	// Template lines follow the same rules as the entries they produce.
	errs = append(errs, journal.ValidateLines(journalLines(p.Lines), tolerance)...)
	return errs
}

func journalLines(lines []TemplateLineInput) []journal.LineInput {
	out := make([]journal.LineInput, len(lines))
	for i, l := range lines {
		out[i] = journal.LineInput{AccountID: l.AccountID, Description: l.Description, Debit: l.Debit, Credit: l.Credit}
	}
	return out
}

func templateLines(lines []model.TemplateLine) []journal.LineInput {
	out := make([]journal.LineInput, len(lines))
	for i, l := range lines {
		out[i] = journal.LineInput{AccountID: l.AccountID, Description: l.Description, Debit: l.Debit, Credit: l.Credit}
	}
	return out
}

// GetTemplate returns a template with its lines.
func (e *Engine) GetTemplate(ctx context.Context, templateID string) (*model.Template, error) {
	var tmpl model.Template
	err := withLines(e.db.WithContext(ctx)).Where("id = ?", templateID).First(&tmpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("template", templateID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading template %s: %w", templateID, err)
	}
	return &tmpl, nil
}

// ListTemplates returns a company's templates ordered by next run date.
func (e *Engine) ListTemplates(ctx context.Context, companyID string) ([]model.Template, error) {
	var tmpls []model.Template
	err := withLines(e.db.WithContext(ctx)).
		Where("company_id = ?", companyID).
		Order("next_run_date, name").
		Find(&tmpls).Error
	if err != nil {
		return nil, fmt.Errorf("listing templates: %w", err)
	}
	return tmpls, nil
}

// Deactivate stops a template from being picked up again.
func (e *Engine) Deactivate(ctx context.Context, identity auth.Identity, templateID string) error {
	tmpl, err := e.GetTemplate(ctx, templateID)
	if err != nil {
		return err
	}
	if err := auth.Check(ctx, e.authz, identity, auth.ActionManageRecurring, tmpl.CompanyID); err != nil {
		return err
	}
	err = e.db.WithContext(ctx).Model(&model.Template{}).
		Where("id = ?", templateID).
		Update("active", false).Error
	if err != nil {
		return fmt.Errorf("deactivating template %s: %w", templateID, err)
	}
	e.log.Info("recurring template deactivated", zap.String("template", templateID), zap.String("by", identity.ID))
	return nil
}

// History returns a template's execution records, oldest first.
func (e *Engine) History(ctx context.Context, templateID string) ([]model.Execution, error) {
	var execs []model.Execution
	err := e.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("processed_at").
		Find(&execs).Error
	if err != nil {
		return nil, fmt.Errorf("loading history of %s: %w", templateID, err)
	}
	return execs, nil
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("line_order") })
}
