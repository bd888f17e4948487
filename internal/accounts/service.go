package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/auth"
	"github.com/cleared-dev/ledger/internal/id"
	"github.com/cleared-dev/ledger/internal/model"
	"github.com/cleared-dev/ledger/internal/store"
)

// Registry provides lookup over the chart of accounts. Balances are only
// written through UpdateBalance, which the journal engine calls.
type Registry struct {
	db    *gorm.DB
	authz auth.Authorizer
}

// NewRegistry creates a Registry.
func NewRegistry(db *gorm.DB, authz auth.Authorizer) *Registry {
	return &Registry{db: db, authz: authz}
}

// CreateParams holds parameters for creating an account.
type CreateParams struct {
	CompanyID        string
	Code             string
	Name             string
	Type             model.AccountType
	NormalBalance    model.NormalBalance // defaults from Type
	ParentCode       string
	AllowManualEntry bool
	Inactive         bool
	Description      string
}

// Create adds an account. A parent becomes a header account and the child's
// level is parent.level + 1.
func (r *Registry) Create(ctx context.Context, identity auth.Identity, p CreateParams) (*model.Account, error) {
	if err := auth.Check(ctx, r.authz, identity, auth.ActionCreateAccount, p.CompanyID); err != nil {
		return nil, err
	}
	if p.NormalBalance == "" {
		p.NormalBalance = p.Type.NormalBalance()
	}
	if verrs := validateCreate(p); len(verrs) > 0 {
		return nil, verrs
	}

	acct := &model.Account{
		ID:               id.New(),
		CompanyID:        p.CompanyID,
		Code:             p.Code,
		Name:             p.Name,
		Type:             p.Type,
		NormalBalance:    p.NormalBalance,
		Balance:          decimal.Zero,
		Version:          1,
		Active:           !p.Inactive,
		AllowManualEntry: p.AllowManualEntry,
		Level:            1,
		Description:      p.Description,
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if p.ParentCode != "" {
			var parent model.Account
			err := tx.Where("company_id = ? AND code = ?", p.CompanyID, p.ParentCode).First(&parent).Error
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFound("parent account", p.ParentCode)
			}
			if err != nil {
				return fmt.Errorf("loading parent %s: %w", p.ParentCode, err)
			}
			if !parent.Balance.IsZero() {
				return apperr.Invalid("header", parent.Code, "account with a balance cannot become a header account")
			}
			if !parent.Header {
				if err := tx.Model(&model.Account{}).Where("id = ?", parent.ID).Update("header", true).Error; err != nil {
					return fmt.Errorf("marking %s as header: %w", parent.Code, err)
				}
			}
			acct.ParentID = &parent.ID
			acct.Level = parent.Level + 1
		}

		if err := tx.Create(acct).Error; err != nil {
			if store.IsDuplicate(err) {
				return apperr.Invalid("code", p.Code, "duplicate account code")
			}
			return fmt.Errorf("creating account %s: %w", p.Code, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

func validateCreate(p CreateParams) apperr.ValidationErrors {
	var errs apperr.ValidationErrors
	if p.CompanyID == "" {
		errs = append(errs, apperr.ValidationError{Rule: "company", Subject: p.Code, Description: "company is required"})
	}
	if p.Code == "" {
		errs = append(errs, apperr.ValidationError{Rule: "code", Description: "account code is required"})
	}
	if p.Name == "" {
		errs = append(errs, apperr.ValidationError{Rule: "name", Subject: p.Code, Description: "account name is required"})
	}
	if !p.Type.Valid() {
		errs = append(errs, apperr.ValidationError{Rule: "type", Subject: p.Code, Description: fmt.Sprintf("unknown account type %q", p.Type)})
	}
	if !p.NormalBalance.Valid() {
		errs = append(errs, apperr.ValidationError{Rule: "normal-balance", Subject: p.Code, Description: fmt.Sprintf("unknown direction %q", p.NormalBalance)})
	}
	return errs
}

// Get returns an account by ID.
func (r *Registry) Get(ctx context.Context, accountID string) (*model.Account, error) {
	var acct model.Account
	err := r.db.WithContext(ctx).Where("id = ?", accountID).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("account", accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", accountID, err)
	}
	return &acct, nil
}

// GetByCode returns a company's account by code.
func (r *Registry) GetByCode(ctx context.Context, companyID, code string) (*model.Account, error) {
	var acct model.Account
	err := r.db.WithContext(ctx).Where("company_id = ? AND code = ?", companyID, code).First(&acct).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NotFound("account", code)
	}
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", code, err)
	}
	return &acct, nil
}

// Exists reports whether an account ID exists.
func (r *Registry) Exists(ctx context.Context, accountID string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Account{}).Where("id = ?", accountID).Count(&n).Error; err != nil {
		return false, fmt.Errorf("counting account %s: %w", accountID, err)
	}
	return n > 0, nil
}

// List returns all of a company's accounts ordered by code.
func (r *Registry) List(ctx context.Context, companyID string) ([]model.Account, error) {
	var accts []model.Account
	if err := r.db.WithContext(ctx).Where("company_id = ?", companyID).Order("code").Find(&accts).Error; err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	return accts, nil
}

// ByType returns a company's accounts of the given type.
func (r *Registry) ByType(ctx context.Context, companyID string, accountType model.AccountType) ([]model.Account, error) {
	var accts []model.Account
	err := r.db.WithContext(ctx).
		Where("company_id = ? AND type = ?", companyID, accountType).
		Order("code").
		Find(&accts).Error
	if err != nil {
		return nil, fmt.Errorf("listing %s accounts: %w", accountType, err)
	}
	return accts, nil
}

// Seed creates chart rows in order; parents must precede their children.
func (r *Registry) Seed(ctx context.Context, identity auth.Identity, companyID string, chart []ChartAccount) ([]model.Account, error) {
	created := make([]model.Account, 0, len(chart))
	for _, c := range chart {
		acct, err := r.Create(ctx, identity, CreateParams{
			CompanyID:        companyID,
			Code:             c.Code,
			Name:             c.Name,
			Type:             c.Type,
			NormalBalance:    c.NormalBalance,
			ParentCode:       c.ParentCode,
			AllowManualEntry: c.AllowManualEntry,
			Inactive:         !c.Active,
			Description:      c.Description,
		})
		if err != nil {
			return created, fmt.Errorf("seeding %s: %w", c.Code, err)
		}
		created = append(created, *acct)
	}
	return created, nil
}

// Chart returns a company's accounts in chart form for export.
func (r *Registry) Chart(ctx context.Context, companyID string) ([]ChartAccount, error) {
	accts, err := r.List(ctx, companyID)
	if err != nil {
		return nil, err
	}
	codes := make(map[string]string, len(accts))
	for _, a := range accts {
		codes[a.ID] = a.Code
	}
	chart := make([]ChartAccount, len(accts))
	for i, a := range accts {
		c := ChartAccount{
			Code:             a.Code,
			Name:             a.Name,
			Type:             a.Type,
			NormalBalance:    a.NormalBalance,
			AllowManualEntry: a.AllowManualEntry,
			Active:           a.Active,
			Description:      a.Description,
		}
		if a.ParentID != nil {
			c.ParentCode = codes[*a.ParentID]
		}
		chart[i] = c
	}
	return sortParentsFirst(chart), nil
}

// LoadForUpdate reads the given accounts inside tx, keyed by ID. Missing IDs
// are simply absent from the result.
func LoadForUpdate(ctx context.Context, tx *gorm.DB, ids []string) (map[string]model.Account, error) {
	var accts []model.Account
	if len(ids) > 0 {
		if err := tx.WithContext(ctx).Where("id IN ?", ids).Find(&accts).Error; err != nil {
			return nil, fmt.Errorf("loading accounts: %w", err)
		}
	}
	byID := make(map[string]model.Account, len(accts))
	for _, a := range accts {
		byID[a.ID] = a
	}
	return byID, nil
}

// UpdateBalance writes a new running balance if the account still carries
// the version that was read. A stale version yields apperr.ErrConflict.
func UpdateBalance(ctx context.Context, tx *gorm.DB, acct model.Account, balance decimal.Decimal) error {
	res := tx.WithContext(ctx).Model(&model.Account{}).
		Where("id = ? AND version = ?", acct.ID, acct.Version).
		Updates(map[string]any{
			"balance": balance,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return fmt.Errorf("updating balance of %s: %w", acct.Code, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("account %s: %w", acct.Code, apperr.ErrConflict)
	}
	return nil
}
