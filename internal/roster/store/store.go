package store

import (
	"context"
	"errors"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrUnavailable wraps driver failures that are worth retrying later,
	// such as a locked database or a closed connection.
	ErrUnavailable = errors.New("store: unavailable")
)

// Store is the root data access interface. Concrete drivers implement it and
// expose one sub-repository per table. Repositories obtained from a Tx run
// inside that transaction; repositories obtained from the Store do not, so
// code inside WithTx must only use the tx handle it was given.
type Store interface {
	Accounts() Accounts
	Invitations() Invitations

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx runs fn inside a transaction, committing when fn returns nil
	// and rolling back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Accounts interface {
	// GetAccountByUsername returns ErrNotFound if no account has the username.
	GetAccountByUsername(ctx context.Context, username string) (domain.Account, error)

	// CreateAccount inserts a new account, returning ErrAlreadyExists when
	// the username is taken.
	CreateAccount(ctx context.Context, a domain.Account) error

	// UpdateCredential replaces the stored credential hash.
	UpdateCredential(ctx context.Context, username string, credential string) error

	// UpdateRoles replaces the stored role set.
	UpdateRoles(ctx context.Context, username string, roles domain.RoleSet) error

	// DeleteAccount removes the row; ErrNotFound if it did not exist.
	DeleteAccount(ctx context.Context, username string) error

	// ListAccounts returns every account ordered by username.
	ListAccounts(ctx context.Context) ([]domain.Account, error)

	// ListUsernames returns every username in order.
	ListUsernames(ctx context.Context) ([]string, error)

	// CountWithRole counts accounts whose role set contains role.
	CountWithRole(ctx context.Context, role domain.Role) (int, error)

	// IsEmpty returns true if there are no accounts.
	IsEmpty(ctx context.Context) (bool, error)
}

type Invitations interface {
	// CreateInvitation inserts an unused code, returning ErrAlreadyExists on
	// a code collision.
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitation returns the code whether used or not.
	GetInvitation(ctx context.Context, code string) (domain.Invitation, error)

	// GetUnusedInvitation returns ErrNotFound for missing and used codes alike.
	GetUnusedInvitation(ctx context.Context, code string) (domain.Invitation, error)

	// MarkInvitationUsed flips used to true only if it is still false and
	// returns ErrNotFound when no unused row matched. This is the claim step
	// of a redemption and must run in the same Tx as the account insert.
	MarkInvitationUsed(ctx context.Context, code string, usedBy string) error
}
