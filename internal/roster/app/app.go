package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aussiebroadwan/roster/internal/roster/service"
	"github.com/aussiebroadwan/roster/internal/roster/session"
	"github.com/aussiebroadwan/roster/internal/roster/store"
	"github.com/aussiebroadwan/roster/internal/roster/store/drivers/sqlite"
	"github.com/aussiebroadwan/roster/pkg/cryptox"
	"github.com/aussiebroadwan/roster/pkg/slogx"
)

// BuildVersion is overridden at build time via ldflags.
var BuildVersion = "v0.1.0"

// Application owns the store and the services built on it.
type Application struct {
	cfg    Config
	logger *slog.Logger
	db     store.Store

	Credentials *service.CredentialService
	Invites     *service.InviteService
	Privileges  *service.PrivilegeService
	Bootstrap   *service.BootstrapService
	Session     *session.Session

	housekeeping *service.HousekeepingService
}

// New opens the database, applies migrations, loads the pepper and wires the
// services. Logs go to logOutput.
func New(cfg Config, logOutput io.Writer) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "roster",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
			Output:  logOutput,
		}),
		Session: session.New(),
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices(cryptox.NewHasher(pepper))
	app.housekeeping.Start()

	return app, nil
}

func (app *Application) initDatabase() error {
	db, err := sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseFile, app.cfg.StoreTimeout))
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Debug("database ready", "file", app.cfg.DatabaseFile)
	return nil
}

func (app *Application) initServices(hasher *cryptox.Hasher) {
	throttle := service.NewLoginThrottle(app.cfg.LoginAttemptsPerMinute)

	app.Credentials = &service.CredentialService{
		Store:    app.db,
		Hasher:   hasher,
		Throttle: throttle,
		Timeout:  app.cfg.StoreTimeout,
	}
	app.Invites = &service.InviteService{
		Store:      app.db,
		Hasher:     hasher,
		CodeLength: app.cfg.InviteCodeLength,
		Timeout:    app.cfg.StoreTimeout,
	}
	app.Privileges = &service.PrivilegeService{
		Store:   app.db,
		Hasher:  hasher,
		Timeout: app.cfg.StoreTimeout,
	}
	app.Bootstrap = &service.BootstrapService{
		Store:   app.db,
		Hasher:  hasher,
		Timeout: app.cfg.StoreTimeout,
	}

	app.housekeeping = service.NewHousekeepingService(throttle, app.logger, app.cfg.HousekeepingInterval)
}

// Context returns ctx carrying the application logger and client session.
func (app *Application) Context(ctx context.Context) context.Context {
	return session.WithContext(slogx.WithContext(ctx, app.logger), app.Session)
}

func (app *Application) Logger() *slog.Logger { return app.logger }

// Close stops background work and closes the database.
func (app *Application) Close() error {
	app.housekeeping.Stop()
	app.Session.End()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}
	return nil
}
