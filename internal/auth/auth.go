// Package auth defines the authorization predicate the engines consult
// before every mutating operation. Real policy lives outside this module.
package auth

import (
	"context"

	"github.com/cleared-dev/ledger/internal/apperr"
)

// Action names a mutating operation.
type Action string

const (
	ActionCreateEntry      Action = "journal.create"
	ActionDeleteEntry      Action = "journal.delete"
	ActionCreateAccount    Action = "account.create"
	ActionOpenPeriod       Action = "period.open"
	ActionClosePeriod      Action = "period.close"
	ActionManageRecurring  Action = "recurring.manage"
	ActionExecuteRecurring Action = "recurring.execute"
)

// Identity is the caller on whose behalf an operation runs.
type Identity struct {
	ID        string
	CompanyID string
}

// System returns the identity used by scheduled jobs.
func System(id string) Identity {
	return Identity{ID: id}
}

// Authorizer decides whether identity may perform action on resource.
type Authorizer interface {
	CanPerform(ctx context.Context, identity Identity, action Action, resource string) bool
}

// AllowAll permits everything.
type AllowAll struct{}

func (AllowAll) CanPerform(context.Context, Identity, Action, string) bool { return true }

// Func adapts a function to Authorizer.
type Func func(ctx context.Context, identity Identity, action Action, resource string) bool

func (f Func) CanPerform(ctx context.Context, identity Identity, action Action, resource string) bool {
	return f(ctx, identity, action, resource)
}

// CompanyScoped allows an identity to act only on its own company. Identities
// with no company (system jobs) are allowed everywhere.
type CompanyScoped struct{}

func (CompanyScoped) CanPerform(_ context.Context, identity Identity, _ Action, resource string) bool {
	return identity.CompanyID == "" || identity.CompanyID == resource
}

// Check returns an AuthorizationError when a denies the action.
func Check(ctx context.Context, a Authorizer, identity Identity, action Action, resource string) error {
	if a == nil || a.CanPerform(ctx, identity, action, resource) {
		return nil
	}
	return apperr.AuthorizationError{Identity: identity.ID, Action: string(action), Resource: resource}
}
