package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/store"
	"github.com/aussiebroadwan/roster/pkg/cryptox"
	"github.com/aussiebroadwan/roster/pkg/idx"
	"github.com/aussiebroadwan/roster/pkg/slogx"
)

// Check is an external pass/fail validator. The returned error's message is
// shown to the user as is.
type Check func(string) error

// Checks are the optional username and password validators run before any
// account is created or a password replaced.
type Checks struct {
	UsernameCheck Check
	PasswordCheck Check
}

func (c Checks) username(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if c.UsernameCheck != nil {
		if err := c.UsernameCheck(username); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return nil
}

func (c Checks) password(password string) error {
	if password == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if c.PasswordCheck != nil {
		if err := c.PasswordCheck(password); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
	}
	return nil
}

// newAccount validates reg and hashes its password. The caller fills in Roles
// before inserting.
func newAccount(checks Checks, hasher *cryptox.Hasher, reg domain.Registration) (domain.Account, error) {
	if err := checks.username(reg.Username); err != nil {
		return domain.Account{}, err
	}
	if err := checks.password(reg.Password); err != nil {
		return domain.Account{}, err
	}

	credential, err := hasher.Hash(reg.Password)
	if err != nil {
		return domain.Account{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return domain.Account{
		ID:          idx.New().String(),
		Username:    reg.Username,
		DisplayName: reg.DisplayName,
		Email:       reg.Email,
		Credential:  credential,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// CredentialService registers accounts directly and verifies logins.
type CredentialService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
	Checks Checks

	// Throttle limits login attempts per username; nil disables it.
	Throttle *LoginThrottle

	// Timeout bounds each store call; zero means DefaultStoreTimeout.
	Timeout time.Duration
}

// Register creates an account holding every role in roles.
func (s *CredentialService) Register(ctx context.Context, reg domain.Registration, roles domain.RoleSet) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	acct, err := s.prepare(reg, roles)
	if err != nil {
		log.Warn("registration rejected",
			slog.String("username", reg.Username),
			slog.Any("error", err),
		)
		return domain.Account{}, err
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	if err := s.Store.Accounts().CreateAccount(sctx, acct); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			log.Warn("registration with taken username", slog.String("username", acct.Username))
			return domain.Account{}, ErrDuplicateUsername
		}
		log.Error("failed to create account", slog.String("username", acct.Username), slog.Any("error", err))
		return domain.Account{}, unavailable(err)
	}

	log.Info("account registered",
		slog.String("username", acct.Username),
		slog.String("roles", acct.Roles.String()),
	)
	return acct, nil
}

func (s *CredentialService) prepare(reg domain.Registration, roles domain.RoleSet) (domain.Account, error) {
	roles, err := validateRoles(roles)
	if err != nil {
		return domain.Account{}, err
	}
	acct, err := newAccount(s.Checks, s.Hasher, reg)
	if err != nil {
		return domain.Account{}, err
	}
	acct.Roles = roles
	return acct, nil
}

// Login verifies the credential and returns the role the session should run
// as. With an empty roleHint the account must hold exactly one role; otherwise
// a *RoleSelectionError lists the choices.
func (s *CredentialService) Login(ctx context.Context, username, password string, roleHint domain.Role) (domain.Role, error) {
	acct, err := s.authenticate(ctx, username, password)
	if err != nil {
		return "", err
	}

	role, err := chooseRole(acct.Roles, roleHint)
	if err != nil {
		if errors.Is(err, ErrRoleMismatch) {
			slogx.FromContext(ctx).Warn("login with role not held",
				slog.String("username", username),
				slog.String("role", roleHint.String()),
			)
		}
		return "", err
	}

	slogx.FromContext(ctx).Info("login succeeded",
		slog.String("username", username),
		slog.String("role", role.String()),
	)
	return role, nil
}

// EligibleRoles verifies the credential and returns every role the account
// may log in as.
func (s *CredentialService) EligibleRoles(ctx context.Context, username, password string) (domain.RoleSet, error) {
	acct, err := s.authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	return acct.Roles, nil
}

// ChangePassword replaces the credential after verifying the current one.
func (s *CredentialService) ChangePassword(ctx context.Context, username, current, next string) error {
	log := slogx.FromContext(ctx)

	if _, err := s.authenticate(ctx, username, current); err != nil {
		return err
	}
	if err := s.Checks.password(next); err != nil {
		log.Warn("new password rejected", slog.String("username", username), slog.Any("error", err))
		return err
	}

	credential, err := s.Hasher.Hash(next)
	if err != nil {
		log.Error("failed to hash password", slog.Any("error", err))
		return fmt.Errorf("hash password: %w", err)
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	if err := s.Store.Accounts().UpdateCredential(sctx, username, credential); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoSuchUser
		}
		log.Error("failed to update credential", slog.String("username", username), slog.Any("error", err))
		return unavailable(err)
	}

	log.Info("password changed", slog.String("username", username))
	return nil
}

// authenticate loads the account and checks password against its credential.
func (s *CredentialService) authenticate(ctx context.Context, username, password string) (domain.Account, error) {
	log := slogx.FromContext(ctx)

	if s.Throttle != nil && !s.Throttle.Allow(username) {
		log.Warn("login throttled", slog.String("username", username))
		return domain.Account{}, ErrTooManyAttempts
	}

	sctx, cancel := storeContext(ctx, s.Timeout)
	defer cancel()

	acct, err := s.Store.Accounts().GetAccountByUsername(sctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Warn("login for unknown user", slog.String("username", username))
			return domain.Account{}, ErrNoSuchUser
		}
		log.Error("failed to fetch account", slog.String("username", username), slog.Any("error", err))
		return domain.Account{}, unavailable(err)
	}

	if err := s.Hasher.Verify(password, acct.Credential); err != nil {
		if !errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Error("stored credential is unreadable", slog.String("username", username), slog.Any("error", err))
		} else {
			log.Warn("login with wrong password", slog.String("username", username))
		}
		return domain.Account{}, ErrInvalidCredential
	}

	return acct, nil
}
