package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/store"
	"github.com/aussiebroadwan/roster/internal/roster/store/drivers/sqlite"
	"github.com/aussiebroadwan/roster/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	store      store.Store
	creds      *CredentialService
	invites    *InviteService
	privileges *PrivilegeService
	bootstrap  *BootstrapService
}

func testHasher() *cryptox.Hasher {
	return &cryptox.Hasher{
		Params: cryptox.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32},
		Pepper: []byte("test-pepper"),
	}
}

func newEnv(t *testing.T, st store.Store) *testEnv {
	t.Helper()

	hasher := testHasher()
	return &testEnv{
		store:      st,
		creds:      &CredentialService{Store: st, Hasher: hasher},
		invites:    &InviteService{Store: st, Hasher: hasher},
		privileges: &PrivilegeService{Store: st, Hasher: hasher},
		bootstrap:  &BootstrapService{Store: st, Hasher: hasher},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	return newEnv(t, st)
}

func reg(username string) domain.Registration {
	return domain.Registration{
		Username:    username,
		DisplayName: "User " + username,
		Email:       username + "@example.test",
		Password:    username + "-password",
	}
}

func (e *testEnv) mustRegister(t *testing.T, username string, roles ...domain.Role) domain.Account {
	t.Helper()
	acct, err := e.creds.Register(context.Background(), reg(username), domain.NewRoleSet(roles...))
	require.NoError(t, err)
	return acct
}

func (e *testEnv) mustGet(t *testing.T, username string) domain.Account {
	t.Helper()
	acct, err := e.store.Accounts().GetAccountByUsername(context.Background(), username)
	require.NoError(t, err)
	return acct
}

func TestIsRetryable(t *testing.T) {
	require.True(t, IsRetryable(unavailable(store.ErrUnavailable)))
	require.True(t, IsRetryable(classify(context.DeadlineExceeded)))
	require.False(t, IsRetryable(ErrNoSuchUser))
	require.False(t, IsRetryable(classify(ErrLastAdminViolation)))
	require.False(t, IsRetryable(nil))
}

func TestRoleSelectionError(t *testing.T) {
	err := error(&RoleSelectionError{Eligible: domain.RoleSet{domain.RoleStudent, domain.RoleReviewer}})
	require.ErrorIs(t, err, ErrRoleSelectionRequired)
	require.Contains(t, err.Error(), "student, reviewer")

	var sel *RoleSelectionError
	require.ErrorAs(t, classify(err), &sel)
	require.Len(t, sel.Eligible, 2)
}

func TestChooseRole(t *testing.T) {
	one := domain.RoleSet{domain.RoleStaff}
	many := domain.RoleSet{domain.RoleInstructor, domain.RoleReviewer}

	tests := []struct {
		name     string
		eligible domain.RoleSet
		choice   domain.Role
		want     domain.Role
		wantErr  error
	}{
		{"single role implied", one, "", domain.RoleStaff, nil},
		{"single role explicit", one, domain.RoleStaff, domain.RoleStaff, nil},
		{"single role wrong", one, domain.RoleAdmin, "", ErrRoleMismatch},
		{"several need choice", many, "", "", ErrRoleSelectionRequired},
		{"several explicit", many, domain.RoleReviewer, domain.RoleReviewer, nil},
		{"unknown role", many, domain.Role("superuser"), "", ErrRoleMismatch},
		{"nothing eligible", nil, "", "", ErrEmptyRoleSet},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := chooseRole(tt.eligible, tt.choice)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestStoreTimeoutSurfacesAsUnavailable(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegister(t, "alice", domain.RoleStudent)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.privileges.ListUsernames(ctx)
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.True(t, IsRetryable(err))

	_, err = env.creds.Login(ctx, "alice", "alice-password", "")
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestClosedStoreIsUnavailable(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	_, err := env.creds.Register(context.Background(), reg("late"), domain.RoleSet{domain.RoleStudent})
	require.ErrorIs(t, err, ErrStoreUnavailable)

	_, err = env.bootstrap.IsBootstrapped(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)
}
