// Package apperr defines the error taxonomy shared by the ledger and
// recurring engines. Every typed error matches one sentinel via errors.Is.
package apperr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("not authorized")
	ErrNotFound     = errors.New("not found")
	// ErrConflict marks a lost optimistic-concurrency race. Callers retry the whole unit.
	ErrConflict = errors.New("concurrent modification")
)

// ValidationError describes a single rule violation.
type ValidationError struct {
	Rule        string
	Subject     string
	Description string
}

func (e ValidationError) Error() string {
	if e.Subject == "" {
		return fmt.Sprintf("%s: %s", e.Rule, e.Description)
	}
	return fmt.Sprintf("%s [%s]: %s", e.Rule, e.Subject, e.Description)
}

// Is reports whether target is ErrValidation.
func (e ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ValidationErrors collects every violation found in one validation pass.
type ValidationErrors []ValidationError

func (es ValidationErrors) Error() string {
	msgs := make([]string, len(es))
	for i, e := range es {
		msgs[i] = e.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// Is reports whether target is ErrValidation.
func (es ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// Invalid returns a single-violation error.
func Invalid(rule, subject, format string, args ...any) error {
	return ValidationError{Rule: rule, Subject: subject, Description: fmt.Sprintf(format, args...)}
}

// AuthorizationError reports a denied action.
type AuthorizationError struct {
	Identity string
	Action   string
	Resource string
}

func (e AuthorizationError) Error() string {
	return fmt.Sprintf("%s may not %s on %s", e.Identity, e.Action, e.Resource)
}

// Is reports whether target is ErrUnauthorized.
func (e AuthorizationError) Is(target error) bool {
	return target == ErrUnauthorized
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// Is reports whether target is ErrNotFound.
func (e NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound returns a NotFoundError for kind/id.
func NotFound(kind, id string) error {
	return NotFoundError{Kind: kind, ID: id}
}

// IsRetryable reports whether err is a transient conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}
