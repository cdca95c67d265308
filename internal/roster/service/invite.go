package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/store"
	"github.com/aussiebroadwan/roster/pkg/cryptox"
	"github.com/aussiebroadwan/roster/pkg/slogx"
)

const (
	DefaultCodeLength  = 8
	DefaultMaxAttempts = 5
)

// InviteService issues single-use invitation codes and creates accounts from
// them.
type InviteService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Checks Checks

	CodeLength  int // zero means DefaultCodeLength
	MaxAttempts int // zero means DefaultMaxAttempts

	// NewCode generates a candidate code; nil means cryptox.GenerateCode.
	NewCode func(length int) (string, error)

	Timeout time.Duration
}

// NormalizeCode upper-cases and trims a code as typed by a person.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Generate stores a fresh unused code authorizing roles and returns it.
// Collisions with existing codes are retried up to MaxAttempts times.
func (s *InviteService) Generate(ctx context.Context, createdBy string, roles domain.RoleSet) (string, error) {
	log := slogx.FromContext(ctx)

	valid, err := validateRoles(roles)
	if err != nil {
		log.Warn("invitation with invalid roles", slog.String("roles", roles.String()), slog.Any("error", err))
		return "", err
	}
	roles = valid

	length := s.CodeLength
	if length <= 0 {
		length = DefaultCodeLength
	}
	attempts := s.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	newCode := s.NewCode
	if newCode == nil {
		newCode = cryptox.GenerateCode
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		code, err := newCode(length)
		if err != nil {
			log.Error("failed to generate invitation code", slog.Any("error", err))
			return "", err
		}

		inv := domain.Invitation{
			Code:      code,
			Roles:     roles,
			CreatedBy: createdBy,
			CreatedAt: time.Now().UTC(),
		}

		sctx, cancel := storeContext(ctx, s.Timeout)
		err = s.Store.Invitations().CreateInvitation(sctx, inv)
		cancel()

		switch {
		case err == nil:
			log.Info("invitation created",
				slog.String("created_by", createdBy),
				slog.String("roles", roles.String()),
			)
			return code, nil
		case errors.Is(err, store.ErrAlreadyExists):
			log.Debug("invitation code collision", slog.Int("attempt", attempt))
		default:
			log.Error("failed to store invitation", slog.Any("error", err))
			return "", unavailable(err)
		}
	}

	log.Error("invitation code space exhausted", slog.Int("attempts", attempts), slog.Int("length", length))
	return "", ErrCodeSpaceExhausted
}

// InvitationRoles returns the roles an unused code authorizes, letting a
// front end offer the choice before redeeming.
func (s *InviteService) InvitationRoles(ctx context.Context, code string) (domain.RoleSet, error) {
	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	inv, err := s.Store.Invitations().GetUnusedInvitation(sctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidOrUsedCode
		}
		slogx.FromContext(ctx).Error("failed to fetch invitation", slog.Any("error", err))
		return nil, unavailable(err)
	}
	return inv.Roles, nil
}

// RedeemInvitation creates an account holding exactly one role taken from the
// code's set and consumes the code. Both writes share one transaction, so a
// failed account insert leaves the code usable and a code is never consumed
// twice.
func (s *InviteService) RedeemInvitation(
	ctx context.Context,
	code string,
	reg domain.Registration,
	chosen domain.Role,
) (domain.Account, error) {
	log := slogx.FromContext(ctx)
	code = NormalizeCode(code)

	// Hash outside the transaction; argon2 is slow and the write lock is not.
	acct, err := newAccount(s.Checks, s.Hasher, reg)
	if err != nil {
		log.Warn("redemption rejected", slog.String("username", reg.Username), slog.Any("error", err))
		return domain.Account{}, err
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	err = s.Store.WithTx(sctx, func(tx store.Tx) error {
		inv, err := tx.Invitations().GetUnusedInvitation(sctx, code)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidOrUsedCode
			}
			return err
		}

		role, err := chooseRole(inv.Roles, chosen)
		if err != nil {
			return err
		}
		acct.Roles = domain.RoleSet{role}

		if err := tx.Invitations().MarkInvitationUsed(sctx, code, acct.Username); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvalidOrUsedCode
			}
			return err
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
		logRejection(log, "redemption", acct.Username, err)
		return domain.Account{}, err
	}

	log.Info("account registered via invitation",
		slog.String("username", acct.Username),
		slog.String("role", acct.Roles.String()),
	)
	return acct, nil
}
