package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aussiebroadwan/roster/internal/roster/domain"
	"github.com/aussiebroadwan/roster/internal/roster/session"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	dir := t.TempDir()
	return Config{
		DatabaseFile:           filepath.Join(dir, "roster.db"),
		PepperFile:             filepath.Join(dir, "pepper"),
		StoreTimeout:           5 * time.Second,
		InviteCodeLength:       8,
		LoginAttemptsPerMinute: 5,
		HousekeepingInterval:   time.Minute,
		Env:                    "test",
		LogLevel:               "debug",
		LogFormat:              "text",
	}
}

func TestApplication_EndToEnd(t *testing.T) {
	cfg := testConfig(t)
	var logs bytes.Buffer

	application, err := New(cfg, &logs)
	require.NoError(t, err)

	ctx := application.Context(context.Background())
	require.Same(t, application.Session, session.FromContext(ctx))

	_, err = application.Bootstrap.SetupAdmin(ctx, domain.Registration{Username: "root", Password: "root-secret"})
	require.NoError(t, err)

	code, err := application.Invites.Generate(ctx, "root", domain.RoleSet{domain.RoleStudent})
	require.NoError(t, err)
	require.Len(t, code, cfg.InviteCodeLength)

	_, err = application.Invites.RedeemInvitation(ctx, code, domain.Registration{Username: "stu", Password: "stu-secret"}, "")
	require.NoError(t, err)

	require.NoError(t, application.Close())

	_, err = os.Stat(cfg.PepperFile)
	require.NoError(t, err)
	require.Contains(t, logs.String(), "system bootstrapped")

	// Reopening keeps data and pepper, so old credentials still verify.
	reopened, err := New(cfg, &logs)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	role, err := reopened.Credentials.Login(reopened.Context(context.Background()), "stu", "stu-secret", "")
	require.NoError(t, err)
	require.Equal(t, domain.RoleStudent, role)
}

func TestNew_BadDatabasePath(t *testing.T) {
	cfg := testConfig(t)
	cfg.DatabaseFile = filepath.Join(t.TempDir(), "missing", "dir", "roster.db")

	_, err := New(cfg, &bytes.Buffer{})
	require.Error(t, err)
}
