package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/store"
	"github.com/aussiebroadwan/roster/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	return s
}

func testAccount(username string, roles ...domain.Role) domain.Account {
	return domain.Account{
		ID:          idx.New().String(),
		Username:    username,
		DisplayName: "Display " + username,
		Email:       username + "@example.test",
		Credential:  "$argon2id$placeholder",
		Roles:       domain.NewRoleSet(roles...),
	}
}

func TestApplyMigrations_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.ApplyMigrations())
}

func TestFileStore_ApplyMigrations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.db")
	s, err := NewStore(FileDSN(path, 5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.ApplyMigrations())
	require.NoError(t, s.Ping(context.Background()))

	empty, err := s.Accounts().IsEmpty(context.Background())
	require.NoError(t, err)
	require.True(t, empty)
}

func TestAccounts_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	acct := testAccount("alice", domain.RoleInstructor, domain.RoleAdmin)
	require.NoError(t, s.Accounts().CreateAccount(ctx, acct))

	got, err := s.Accounts().GetAccountByUsername(ctx, "alice")
	require.NoError(t, err)
	require.Equal(t, acct.ID, got.ID)
	require.Equal(t, acct.DisplayName, got.DisplayName)
	require.Equal(t, acct.Email, got.Email)
	require.Equal(t, acct.Credential, got.Credential)
	require.Equal(t, domain.RoleSet{domain.RoleAdmin, domain.RoleInstructor}, got.Roles)
	require.False(t, got.CreatedAt.IsZero())

	_, err = s.Accounts().GetAccountByUsername(ctx, "nobody")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAccounts_DuplicateUsername(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Accounts().CreateAccount(ctx, testAccount("bob", domain.RoleStudent)))

	dup := testAccount("bob", domain.RoleAdmin)
	err := s.Accounts().CreateAccount(ctx, dup)
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := s.Accounts().GetAccountByUsername(ctx, "bob")
	require.NoError(t, err)
	require.Equal(t, domain.RoleSet{domain.RoleStudent}, got.Roles)
}

func TestAccounts_Updates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	require.NoError(t, s.Accounts().CreateAccount(ctx, testAccount("carol", domain.RoleStudent)))

	require.NoError(t, s.Accounts().UpdateCredential(ctx, "carol", "new-hash"))
	require.NoError(t, s.Accounts().UpdateRoles(ctx, "carol", domain.NewRoleSet(domain.RoleStaff, domain.RoleReviewer)))

	got, err := s.Accounts().GetAccountByUsername(ctx, "carol")
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.Credential)
	require.Equal(t, "reviewer,staff", got.Roles.String())

	require.ErrorIs(t, s.Accounts().UpdateCredential(ctx, "ghost", "x"), store.ErrNotFound)
	require.ErrorIs(t, s.Accounts().UpdateRoles(ctx, "ghost", domain.RoleSet{domain.RoleStaff}), store.ErrNotFound)
}

func TestAccounts_DeleteAndList(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, name := range []string{"zed", "amy", "kim"} {
		require.NoError(t, s.Accounts().CreateAccount(ctx, testAccount(name, domain.RoleStudent)))
	}

	names, err := s.Accounts().ListUsernames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"amy", "kim", "zed"}, names)

	require.NoError(t, s.Accounts().DeleteAccount(ctx, "kim"))
	require.ErrorIs(t, s.Accounts().DeleteAccount(ctx, "kim"), store.ErrNotFound)

	accounts, err := s.Accounts().ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	require.Equal(t, "amy", accounts[0].Username)
	require.Equal(t, "zed", accounts[1].Username)
}

func TestAccounts_CountWithRole(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.Accounts().CreateAccount(ctx, testAccount("a1", domain.RoleAdmin)))
	require.NoError(t, s.Accounts().CreateAccount(ctx, testAccount("a2", domain.RoleStudent, domain.RoleAdmin)))
	require.NoError(t, s.Accounts().CreateAccount(ctx, testAccount("s1", domain.RoleStudent)))

	admins, err := s.Accounts().CountWithRole(ctx, domain.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, 2, admins)

	staff, err := s.Accounts().CountWithRole(ctx, domain.RoleStaff)
	require.NoError(t, err)
	require.Zero(t, staff)
}

func TestInvitations_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	inv := domain.Invitation{
		Code:      "K7M2QX9P",
		Roles:     domain.NewRoleSet(domain.RoleReviewer, domain.RoleInstructor),
		CreatedBy: "admin1",
	}
	require.NoError(t, s.Invitations().CreateInvitation(ctx, inv))
	require.ErrorIs(t, s.Invitations().CreateInvitation(ctx, inv), store.ErrAlreadyExists)

	got, err := s.Invitations().GetUnusedInvitation(ctx, inv.Code)
	require.NoError(t, err)
	require.False(t, got.Used)
	require.Equal(t, "admin1", got.CreatedBy)
	require.True(t, got.Roles.Equal(inv.Roles))
	require.Nil(t, got.UsedAt)

	require.NoError(t, s.Invitations().MarkInvitationUsed(ctx, inv.Code, "newbie"))
	require.ErrorIs(t, s.Invitations().MarkInvitationUsed(ctx, inv.Code, "other"), store.ErrNotFound)

	_, err = s.Invitations().GetUnusedInvitation(ctx, inv.Code)
	require.ErrorIs(t, err, store.ErrNotFound)

	used, err := s.Invitations().GetInvitation(ctx, inv.Code)
	require.NoError(t, err)
	require.True(t, used.Used)
	require.Equal(t, "newbie", used.UsedBy)
	require.NotNil(t, used.UsedAt)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Accounts().CreateAccount(ctx, testAccount("temp", domain.RoleStudent)); err != nil {
			return err
		}
		return store.ErrNotFound
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	empty, err := s.Accounts().IsEmpty(ctx)
	require.NoError(t, err)
	require.True(t, empty)
}

func TestTx_NestedNotSupported(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.Tx(ctx)
		return err
	})
	require.Error(t, err)
}
