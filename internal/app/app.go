package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"jewelflow/internal/config"
	"jewelflow/internal/database"
	"jewelflow/internal/event"
	"jewelflow/internal/handler"
	"jewelflow/internal/middleware"
	"jewelflow/internal/notify"
	"jewelflow/internal/repository"
	"jewelflow/internal/router"
	"jewelflow/internal/service"
)

type App struct {
	server       *http.Server
	cleanupFuncs []func()
}

type stores struct {
	users      service.UserStore
	tokens     service.TokenStore
	categories service.CategoryStore
}

// New builds the development API from cfg. Postgres backs the stores when
// DATABASE_URL is set; otherwise everything lives in memory.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	st, err := a.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bus := event.NewBus()

	authService, err := service.NewAuthService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, st.users, st.tokens, bus)
	if err != nil {
		a.cleanup()
		return nil, fmt.Errorf("failed to initialize auth service: %w", err)
	}
	authService.SetLockoutPolicy(service.LockoutPolicy{MaxAttempts: cfg.MaxFailedLogins, Duration: cfg.LockoutDuration})
	authService.SetPasswordCost(cfg.BcryptCost)

	if cfg.SeedAdminEmail != "" && cfg.SeedAdminPassword != "" {
		if err := authService.SeedAdmin(ctx, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
			a.cleanup()
			return nil, err
		}
	}

	categoryService := service.NewCategoryService(st.categories, bus)

	appRouter := router.New(cfg, middleware.NewAuthMiddleware(authService), router.Handlers{
		Auth:     handler.NewAuthHandler(authService),
		Category: handler.NewCategoryHandler(categoryService),
	})

	bgCtx, bgCancel := context.WithCancel(context.Background())
	go event.AuditLog(bgCtx, bus, slog.Default().With("component", "audit"))
	go authService.CleanExpiredTokens(bgCtx, cfg.TokenCleanupInterval)

	notifications, unsubscribe := bus.Subscribe()
	go func() {
		defer unsubscribe()
		notify.NewNotifier(newMailer(cfg), slog.Default().With("component", "notify")).Run(bgCtx, notifications)
	}()
	a.cleanupFuncs = append(a.cleanupFuncs, bgCancel)

	a.server = &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return a, nil
}

func newMailer(cfg *config.Config) notify.Mailer {
	if cfg.SendGridAPIKey == "" {
		return notify.LogMailer{Log: slog.Default().Debug}
	}
	return notify.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFromName, cfg.MailFromEmail)
}

// openStores picks Postgres or memory for users and categories. Refresh
// tokens move to Redis when REDIS_URL is set.
func (a *App) openStores(ctx context.Context, cfg *config.Config) (stores, error) {
	st, err := a.openPrimaryStores(ctx, cfg)
	if err != nil {
		return stores{}, err
	}

	if cfg.RedisURL == "" {
		return st, nil
	}

	slog.Info("connecting to Redis for refresh tokens")
	client, err := repository.OpenRedis(ctx, cfg.RedisURL)
	if err != nil {
		a.cleanup()
		return stores{}, fmt.Errorf("failed to connect to redis: %w", err)
	}
	a.cleanupFuncs = append(a.cleanupFuncs, func() { _ = client.Close() })

	st.tokens = repository.NewRedisTokenRepository(client)
	return st, nil
}

func (a *App) openPrimaryStores(ctx context.Context, cfg *config.Config) (stores, error) {
	if cfg.DatabaseURL == "" {
		slog.Info("DATABASE_URL not set; using in-memory stores")
		return stores{
			users:      repository.NewMemoryUserRepository(),
			tokens:     repository.NewMemoryTokenRepository(),
			categories: repository.NewMemoryCategoryRepository(),
		}, nil
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return stores{}, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return stores{}, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	a.cleanupFuncs = append(a.cleanupFuncs, db.Close)

	return stores{
		users:      repository.NewUserRepository(db.Pool),
		tokens:     repository.NewTokenRepository(db.Pool),
		categories: repository.NewCategoryRepository(db.Pool),
	}, nil
}

// Handler exposes the router, mainly for tests.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

func (a *App) Addr() string {
	return a.server.Addr
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-serveErr:
		a.cleanup()
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-stop:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	shutdownErr := a.server.Shutdown(ctx)
	a.cleanup()
	if shutdownErr != nil {
		return fmt.Errorf("graceful shutdown failed: %w", shutdownErr)
	}

	slog.Info("server stopped")
	return nil
}

func (a *App) cleanup() {
	for i := len(a.cleanupFuncs) - 1; i >= 0; i-- {
		a.cleanupFuncs[i]()
	}
	a.cleanupFuncs = nil
}

// Close releases background workers and the database pool without serving.
func (a *App) Close() {
	a.cleanup()
}
