// Package period guards postings by accounting period. A period is a closed
// date range per company; only open periods accept or remove entries.
package period

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
)

const dateFormat = "2006-01-02"

// IsOpen reports whether p is open and date falls within it.
func IsOpen(p model.Period, date time.Time) bool {
	return p.Status == model.PeriodOpen && p.Contains(date)
}

// Service manages accounting periods.
type Service struct {
	db    *gorm.DB
	authz auth.Authorizer
	log   *zap.Logger
}

// NewService creates a period Service.
func NewService(db *gorm.DB, authz auth.Authorizer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{db: db, authz: authz, log: log}
}

// OpenParams holds parameters for opening a period.
type OpenParams struct {
	CompanyID string
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

// Month returns OpenParams covering one calendar month, named "YYYY-MM".
func Month(companyID string, year int, month time.Month) OpenParams {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return OpenParams{
		CompanyID: companyID,
		Name:      start.Format("2006-01"),
		StartDate: start,
		EndDate:   start.AddDate(0, 1, -1),
	}
}

// Open creates an open period. It fails if another open period of the
// company overlaps the range.
func (s *Service) Open(ctx context.Context, identity auth.Identity, p OpenParams) (*model.Period, error) {
	if err := auth.Check(ctx, s.authz, identity, auth.ActionOpenPeriod, p.CompanyID); err != nil {
		return nil, err
	}

	start, end := model.Day(p.StartDate), model.Day(p.EndDate)
	if p.CompanyID == "" {
		return nil, apperr.Invalid("company", p.Name, "company is required")
	}
	if end.Before(start) {
		return nil, apperr.Invalid("period-range", p.Name, "end %s is before start %s", end.Format(dateFormat), start.Format(dateFormat))
	}
	name := p.Name
	if name == "" {
		name = start.Format(dateFormat) + ".." + end.Format(dateFormat)
	}

	per := &model.Period{
		ID:        id.New(),
		CompanyID: p.CompanyID,
		Name:      name,
		StartDate: start,
		EndDate:   end,
		Status:    model.PeriodOpen,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var overlap model.Period
		err := tx.Where("company_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			p.CompanyID, model.PeriodOpen, end, start).
			First(&overlap).Error
		if err == nil {
			return apperr.Invalid("period-overlap", name, "overlaps open period %s", overlap.Name)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("checking overlap: %w", err)
		}
		if err := tx.Create(per).Error; err != nil {
			return fmt.Errorf("creating period %s: %w", name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("period opened",
		zap.String("company", per.CompanyID),
		zap.String("period", per.Name),
		zap.Time("start", per.StartDate),
		zap.Time("end", per.EndDate))
	return per, nil
}

// Close marks a period closed. Closing is irreversible.
func (s *Service) Close(ctx context.Context, identity auth.Identity, periodID string) (*model.Period, error) {
	per, err := s.Get(ctx, periodID)
	if err != nil {
		return nil, err
	}
	if err := auth.Check(ctx, s.authz, identity, auth.ActionClosePeriod, per.CompanyID); err != nil {
		return nil, err
	}
	if per.Status == model.PeriodClosed {
		return nil, apperr.Invalid("period-closed", per.Name, "period is already closed")
	}

	now := time.Now().UTC()
	res := s.db.WithContext(ctx).Model(&model.Period{}).
		Where("id = ? AND status = ?", per.ID, model.PeriodOpen).
		Updates(map[string]any{"status": model.PeriodClosed, "closed_at": now})
	if res.Error != nil {
		return nil, fmt.Errorf("closing period %s: %w", per.Name, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("period %s: %w", per.Name, apperr.ErrConflict)
	}

	per.Status = model.PeriodClosed
	per.ClosedAt = &now
	s.log.Info("period closed", zap.String("company", per.CompanyID), zap.String("period", per.Name))
	return per, nil
}

// Get returns a period by ID.
func (s *Service) Get(ctx context.Context, periodID string) (*model.Period, error) {
	return Load(ctx, s.db, periodID)
}

// FindOpen returns the open period of the company covering date.
func (s *Service) FindOpen(ctx context.Context, companyID string, date time.Time) (*model.Period, error) {
	return Covering(ctx, s.db, companyID, date)
}

// List returns a company's periods ordered by start date.
func (s *Service) List(ctx context.Context, companyID string) ([]model.Period, error) {
	var periods []model.Period
	if err := s.db.WithContext(ctx).Where("company_id = ?", companyID).Order("start_date").Find(&periods).Error; err != nil {
		return nil, fmt.Errorf("listing periods: %w", err)
	}
	return periods, nil
}

// Load reads a period through db, which may be a transaction.
func Load(ctx context.Context, db *gorm.DB, periodID string) (*model.Period, error) {
	var per model.Period
	err := db.WithContext(ctx).Where("id = ?", periodID).First(&per).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("period", periodID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading period %s: %w", periodID, err)
	}
	return &per, nil
}

// Covering finds the open period of companyID containing date through db.
func Covering(ctx context.Context, db *gorm.DB, companyID string, date time.Time) (*model.Period, error) {
	d := model.Day(date)
	var per model.Period
	err := db.WithContext(ctx).
		Where("company_id = ? AND status = ? AND start_date <= ? AND end_date >= ?", companyID, model.PeriodOpen, d, d).
		Order("start_date").
		First(&per).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("open period for", d.Format(dateFormat))
	}
	if err != nil {
		return nil, fmt.Errorf("finding open period: %w", err)
	}
	return &per, nil
}
