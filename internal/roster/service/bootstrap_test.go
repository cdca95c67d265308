package service

import (
	"context"
	"testing"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/stretchr/testify/require"
)

func TestSetupAdmin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	done, err := env.bootstrap.IsBootstrapped(ctx)
	require.NoError(t, err)
	require.False(t, done)

	acct, err := env.bootstrap.SetupAdmin(ctx, reg("root"))
	require.NoError(t, err)
	require.Equal(t, domain.RoleSet{domain.RoleAdmin}, acct.Roles)

	done, err = env.bootstrap.IsBootstrapped(ctx)
	require.NoError(t, err)
	require.True(t, done)

	_, err = env.bootstrap.SetupAdmin(ctx, reg("second"))
	require.ErrorIs(t, err, ErrAlreadyBootstrapped)

	role, err := env.creds.Login(ctx, "root", "root-password", "")
	require.NoError(t, err)
	require.Equal(t, domain.RoleAdmin, role)
}

func TestSetupAdmin_RejectsInput(t *testing.T) {
	env := newTestEnv(t)

	bad := reg("root")
	bad.Password = ""
	_, err := env.bootstrap.SetupAdmin(context.Background(), bad)
	require.ErrorIs(t, err, ErrInvalidInput)

	done, err := env.bootstrap.IsBootstrapped(context.Background())
	require.NoError(t, err)
	require.False(t, done)
}

func TestSetupAdmin_NotAfterRegistration(t *testing.T) {
	env := newTestEnv(t)
	env.mustRegister(t, "early", domain.RoleStudent)

	_, err := env.bootstrap.SetupAdmin(context.Background(), reg("root"))
	require.ErrorIs(t, err, ErrAlreadyBootstrapped)
}
