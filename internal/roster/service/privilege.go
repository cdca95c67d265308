package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/store"
	"github.com/aussiebroadwan/roster/pkg/cryptox"
	"github.com/aussiebroadwan/roster/pkg/slogx"
)

// PrivilegeService performs the administrative account operations. The
// "at least one admin" rule is checked in the same transaction as the write
// it guards.
type PrivilegeService struct {
	Store  store.Store
	Hasher *cryptox.Hasher

	// NewPassword generates temporary passwords; nil means
	// cryptox.GeneratePassword.
	NewPassword func() (string, error)

	Timeout time.Duration
}

// AddRole grants role to username. Granting a role already held is a no-op.
func (s *PrivilegeService) AddRole(ctx context.Context, username string, role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	return s.mutateRoles(ctx, "role added", username, func(acct domain.Account) domain.RoleSet {
		return acct.Roles.With(role)
	})
}

// RemoveRole revokes role from username. Revoking a role not held is a no-op.
func (s *PrivilegeService) RemoveRole(ctx context.Context, username string, role domain.Role) error {
	if !role.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidRole, role)
	}

	return s.mutateRoles(ctx, "role removed", username, func(acct domain.Account) domain.RoleSet {
		return acct.Roles.Without(role)
	})
}

// SetRoles replaces the whole role set of username.
func (s *PrivilegeService) SetRoles(ctx context.Context, username string, roles domain.RoleSet) error {
	roles, err := validateRoles(roles)
	if err != nil {
		slogx.FromContext(ctx).Warn("role update rejected", slog.String("username", username), slog.Any("error", err))
		return err
	}

	return s.mutateRoles(ctx, "roles replaced", username, func(domain.Account) domain.RoleSet {
		return roles
	})
}

// mutateRoles loads the account, computes its next role set and writes it
// back, enforcing the last-admin and empty-set rules on the way.
func (s *PrivilegeService) mutateRoles(
	ctx context.Context,
	event string,
	username string,
	next func(acct domain.Account) domain.RoleSet,
) error {
	log := slogx.FromContext(ctx)

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	var (
		before, after domain.RoleSet
		changed       bool
	)
	err := s.Store.WithTx(sctx, func(tx store.Tx) error {
		acct, err := getAccount(sctx, tx, username)
		if err != nil {
			return err
		}

		roles := next(acct)
		if roles.Equal(acct.Roles) {
			return nil
		}

		if acct.Roles.Has(domain.RoleAdmin) && !roles.Has(domain.RoleAdmin) {
			if err := requireOtherAdmin(sctx, tx); err != nil {
				return err
			}
		}
		if roles.Empty() {
			return ErrEmptyRoleSet
		}

		if err := tx.Accounts().UpdateRoles(sctx, username, roles); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNoSuchUser
			}
			return err
		}

		before, after, changed = acct.Roles, roles, true
		return nil
	})
	if err = classify(err); err != nil {
		logRejection(log, "role change", username, err)
		return err
	}

	if changed {
		log.Info(event,
			slog.String("username", username),
			slog.String("before", before.String()),
			slog.String("after", after.String()),
		)
	}
	return nil
}

// DeleteAccount removes target on behalf of acting. An account cannot delete
// itself and the last admin cannot be deleted; other admins can.
func (s *PrivilegeService) DeleteAccount(ctx context.Context, acting, target string) error {
	log := slogx.FromContext(ctx)

	if acting == target {
		log.Warn("self deletion rejected", slog.String("username", acting))
		return ErrSelfDeletion
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	err := s.Store.WithTx(sctx, func(tx store.Tx) error {
		acct, err := getAccount(sctx, tx, target)
		if err != nil {
			return err
		}

		if acct.Roles.Has(domain.RoleAdmin) {
			if err := requireOtherAdmin(sctx, tx); err != nil {
				return err
			}
		}

		if err := tx.Accounts().DeleteAccount(sctx, target); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrNoSuchUser
			}
			return err
		}
		return nil
	})
	if err = classify(err); err != nil {
		logRejection(log, "account deletion", target, err)
		return err
	}

	log.Info("account deleted", slog.String("username", target), slog.String("deleted_by", acting))
	return nil
}

// ResetPassword replaces the credential with a freshly generated temporary
// password and returns it. The plaintext is returned once and never stored.
func (s *PrivilegeService) ResetPassword(ctx context.Context, username string) (string, error) {
	log := slogx.FromContext(ctx)

	generate := s.NewPassword
	if generate == nil {
		generate = cryptox.GeneratePassword
	}

	temporary, err := generate()
	if err != nil {
		log.Error("failed to generate temporary password", slog.Any("error", err))
		return "", err
	}

	credential, err := s.Hasher.Hash(temporary)
	if err != nil {
		log.Error("failed to hash temporary password", slog.Any("error", err))
		return "", fmt.Errorf("hash password: %w", err)
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	if err := s.Store.Accounts().UpdateCredential(sctx, username, credential); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("password reset for unknown user", slog.String("username", username))
			return "", ErrNoSuchUser
		}
		log.Error("failed to reset password", slog.String("username", username), slog.Any("error", err))
		return "", unavailable(err)
	}

	log.Info("password reset",
		slog.String("username", username),
		slog.Any("temporary_password", slogx.Secret(temporary)),
	)
	return temporary, nil
}

// ListAccounts returns every account ordered by username, without credentials.
func (s *PrivilegeService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	accounts, err := s.Store.Accounts().ListAccounts(sctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list accounts", slog.Any("error", err))
		return nil, unavailable(err)
	}
	for i := range accounts {
		accounts[i].Credential = ""
	}
	return accounts, nil
}

// ListUsernames returns every username in order.
func (s *PrivilegeService) ListUsernames(ctx context.Context) ([]string, error) {
	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	names, err := s.Store.Accounts().ListUsernames(sctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to list usernames", slog.Any("error", err))
		return nil, unavailable(err)
	}
	return names, nil
}

func getAccount(ctx context.Context, tx store.Tx, username string) (domain.Account, error) {
	acct, err := tx.Accounts().GetAccountByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return domain.Account{}, ErrNoSuchUser
	}
	return acct, err
}

// requireOtherAdmin fails unless some account besides the one being changed
// holds admin. It is only called for an account that holds admin itself.
func requireOtherAdmin(ctx context.Context, tx store.Tx) error {
	admins, err := tx.Accounts().CountWithRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return ErrLastAdminViolation
	}
	return nil
}

func logRejection(log *slog.Logger, op, username string, err error) {
	if IsRetryable(err) {
		log.Error(op+" failed", slog.String("username", username), slog.Any("error", err))
		return
	}
	log.Warn(op+" rejected", slog.String("username", username), slog.Any("error", err))
}
