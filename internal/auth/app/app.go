package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/lumilearn/lumiauth/internal/auth/http"
	"github.com/lumilearn/lumiauth/internal/auth/service"
	"github.com/lumilearn/lumiauth/internal/auth/store"
	"github.com/lumilearn/lumiauth/internal/auth/store/drivers/sqlite"
	"github.com/lumilearn/lumiauth/pkg/cryptox"
	"github.com/lumilearn/lumiauth/pkg/jwtx"
	"github.com/lumilearn/lumiauth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db         store.Store
	keyManager *jwtx.KeyManager

	// Services
	tokenService         *service.TokenService
	accountService       *service.AccountService
	rolesService         *service.RolesService
	bootstrapService     *service.BootstrapService
	mfaService           *service.MFAService
	clientService        *service.ClientService
	housekeepingService  *service.HousekeepingService
	authorizeService     *service.AuthorizeService
	sessionService       *service.SessionService
	passwordResetService *service.PasswordResetService
	webauthnService      *service.WebAuthnService

	// HTTP server
	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "lumiauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	// Keys are ephemeral Ed25519; every restart invalidates outstanding
	// access tokens, which refresh tokens then replace.
	keyManager, err := jwtx.NewEphemeralKeyManager(jwtx.KeyManagerOptions{
		Issuer:  app.cfg.Issuer,
		NumKeys: app.cfg.NumKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT keys: %w", err)
	}
	app.keyManager = keyManager

	if err := app.initServices(); err != nil {
		return nil, err
	}
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	// Start housekeeping service
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a shutdown signal or server error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		// Perform graceful shutdown
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	// Give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	// Shutdown the HTTP server
	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the housekeeping service
	app.housekeepingService.Stop()

	// Close database connection
	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() error {
	app.tokenService = &service.TokenService{
		KeyManager:    app.keyManager,
		Store:         app.db,
		Issuer:        app.cfg.Issuer,
		AccessTTL:     jwtx.DefaultAccessTokenTTL,
		RefreshTTL:    jwtx.DefaultRefreshTokenTTL,
		MaxInactivity: app.cfg.MaxInactivity,
		SessionTTL:    app.cfg.SessionTTL,
	}

	app.accountService = &service.AccountService{Store: app.db}
	app.rolesService = &service.RolesService{Store: app.db}
	app.bootstrapService = &service.BootstrapService{
		Store: app.db,
		Token: app.cfg.BootstrapToken,
	}
	app.mfaService = &service.MFAService{
		Store:  app.db,
		Issuer: app.cfg.RPDisplayName,
	}
	app.clientService = &service.ClientService{Store: app.db}
	app.authorizeService = &service.AuthorizeService{
		Store:      app.db,
		CodeTTL:    5 * time.Minute,
		SessionTTL: app.cfg.SessionTTL,
	}
	app.sessionService = &service.SessionService{
		Store:         app.db,
		MaxInactivity: app.cfg.MaxInactivity,
	}
	app.passwordResetService = &service.PasswordResetService{
		Store: app.db,
		TTL:   app.cfg.ResetTokenTTL,
	}

	webauthnService, err := service.NewWebAuthnService(
		app.db,
		app.cfg.RPDisplayName,
		app.cfg.RPID,
		app.cfg.RPOrigins,
		app.cfg.SessionTTL,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize webauthn: %w", err)
	}
	app.webauthnService = webauthnService

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)

	return nil
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keyManager.KeySet,
		app.keyManager.Verifier,
		app.cfg.Issuer,
		BuildVersion,
		app.db,
		app.logger,
	)

	// Wire services to router
	router.TokenService = app.tokenService
	router.AccountService = app.accountService
	router.RolesService = app.rolesService
	router.BootstrapService = app.bootstrapService
	router.MFAService = app.mfaService
	router.ClientService = app.clientService
	router.AuthorizeService = app.authorizeService
	router.SessionService = app.sessionService
	router.PasswordResetService = app.passwordResetService
	router.WebAuthnService = app.webauthnService
	router.ApplyRoutes()

	app.router = router

	// Initialize HTTP server
	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
