package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
)

var (
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrNoSuchUser         = errors.New("no such user")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrRoleMismatch       = errors.New("role not held")
	ErrInvalidOrUsedCode  = errors.New("invitation code is invalid or already used")
	ErrLastAdminViolation = errors.New("operation would leave no admin")
	ErrEmptyRoleSet       = errors.New("role set must not be empty")
	ErrSelfDeletion       = errors.New("cannot delete own account")
	ErrStoreUnavailable   = errors.New("store unavailable")

	ErrInvalidRole           = errors.New("invalid role")
	ErrInvalidInput          = errors.New("invalid input")
	ErrRoleSelectionRequired = errors.New("role selection required")
	ErrCodeSpaceExhausted    = errors.New("could not generate a unique invitation code")
	ErrAlreadyBootstrapped   = errors.New("system already bootstrapped")
	ErrTooManyAttempts       = errors.New("too many login attempts")
)

// RoleSelectionError is returned when more than one role is eligible and the
// caller did not pick one. Eligible lists the roles to offer.
type RoleSelectionError struct {
	Eligible domain.RoleSet
}

func (e *RoleSelectionError) Error() string {
	names := make([]string, len(e.Eligible))
	for i, r := range e.Eligible {
		names[i] = r.String()
	}
	return fmt.Sprintf("%s: choose one of %s", ErrRoleSelectionRequired, strings.Join(names, ", "))
}

func (e *RoleSelectionError) Unwrap() error { return ErrRoleSelectionRequired }

// IsRetryable reports whether err is a transient store failure. Every other
// error is a definitive answer and retrying will not change it.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}

// DefaultStoreTimeout bounds each store call made by a service.
const DefaultStoreTimeout = 5 * time.Second

func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// unavailable wraps an unexpected store error so callers can match
// ErrStoreUnavailable while the driver cause stays inspectable.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

// chooseRole resolves which of the eligible roles the caller means. An empty
// choice is only accepted when exactly one role is eligible.
func chooseRole(eligible domain.RoleSet, choice domain.Role) (domain.Role, error) {
	if choice == "" {
		switch len(eligible) {
		case 0:
			return "", ErrEmptyRoleSet
		case 1:
			return eligible[0], nil
		default:
			return "", &RoleSelectionError{Eligible: eligible}
		}
	}
	if !eligible.Has(choice) {
		return "", ErrRoleMismatch
	}
	return choice, nil
}

// validateRoles checks a caller-supplied role set before it reaches the store.
func validateRoles(roles domain.RoleSet) (domain.RoleSet, error) {
	if err := roles.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRole, err)
	}
	roles = domain.NewRoleSet(roles...)
	if roles.Empty() {
		return nil, ErrEmptyRoleSet
	}
	return roles, nil
}

// ruleErrors are the answers a service gives on purpose. Anything else
// reaching a caller came from the store.
var ruleErrors = []error{
	ErrDuplicateUsername,
	ErrNoSuchUser,
	ErrInvalidCredential,
	ErrRoleMismatch,
	ErrInvalidOrUsedCode,
	ErrLastAdminViolation,
	ErrEmptyRoleSet,
	ErrSelfDeletion,
	ErrStoreUnavailable,
	ErrInvalidRole,
	ErrInvalidInput,
	ErrRoleSelectionRequired,
	ErrCodeSpaceExhausted,
	ErrAlreadyBootstrapped,
	ErrTooManyAttempts,
}

// classify passes rule errors through and wraps everything else as
// ErrStoreUnavailable. Used on errors leaving Store.WithTx, which mixes both.
func classify(err error) error {
	if err == nil {
		return nil
	}
	for _, rule := range ruleErrors {
		if errors.Is(err, rule) {
			return err
		}
	}
	return unavailable(err)
}
