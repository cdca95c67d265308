package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/store"
	"github.com/aussiebroadwan/roster/pkg/cryptox"
	"github.com/aussiebroadwan/roster/pkg/slogx"
)

// BootstrapService creates the first administrator of an empty system.
type BootstrapService struct {
	Store   store.Store
	Hasher  *cryptox.Hasher
	Checks  Checks
	Timeout time.Duration
}

// IsBootstrapped reports whether any account exists.
func (s *BootstrapService) IsBootstrapped(ctx context.Context) (bool, error) {
	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	empty, err := s.Store.Accounts().IsEmpty(sctx)
	if err != nil {
		slogx.FromContext(ctx).Error("failed to check bootstrap state", slog.Any("error", err))
		return false, unavailable(err)
	}
	return !empty, nil
}

// SetupAdmin registers reg with role set {admin}. It only succeeds while the
// store holds no accounts; the emptiness check and insert share a transaction.
func (s *BootstrapService) SetupAdmin(ctx context.Context, reg domain.Registration) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	acct, err := newAccount(s.Checks, s.Hasher, reg)
	if err != nil {
		log.Warn("admin setup rejected", slog.String("username", reg.Username), slog.Any("error", err))
		return domain.Account{}, err
	}
	acct.Roles = domain.RoleSet{domain.RoleAdmin}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	err = s.Store.WithTx(sctx, func(tx store.Tx) error {
		empty, err := tx.Accounts().IsEmpty(sctx)
		if err != nil {
			return err
		}
		if !empty {
			return ErrAlreadyBootstrapped
		}

		if err := tx.Accounts().CreateAccount(sctx, acct); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateUsername
			}
			return err
		}
		return nil
	})
	if err = classify(err); err != nil {
		logRejection(log, "admin setup", acct.Username, err)
		return domain.Account{}, err
	}

	log.Info("system bootstrapped", slog.String("admin", acct.Username))
	return acct, nil
}
