package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/exim-session/internal/api/http"
	"github.com/spec-kit/exim-session/internal/api/http/handlers"
	"github.com/spec-kit/exim-session/internal/auth"
	"github.com/spec-kit/exim-session/internal/config"
	"github.com/spec-kit/exim-session/internal/events"
	"github.com/spec-kit/exim-session/internal/observability"
	"github.com/spec-kit/exim-session/internal/persistence"
	"github.com/spec-kit/exim-session/internal/repository"
	"github.com/spec-kit/exim-session/internal/service"
	"github.com/spec-kit/exim-session/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(registry)
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	userRepo := repository.NewUserRepository(pg.PoolHandle())
	sessionRepo := repository.NewSessionRepository(redis.Client, cfg.Redis.KeyPrefix)

	dispatcher := events.NewInMemoryDispatcher(logger)
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger, metrics))

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:    userRepo,
		SessionRepo: sessionRepo,
		Dispatcher:  dispatcher,
	})
	seedAdmin(ctx, cfg.Auth, authService, logger)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), authService, cfg.Auth.SessionCookieName)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}),
		Auth: handlers.NewAuthHandler(authService, authMiddleware, handlers.CookieOptions{
			Name:   cfg.Auth.SessionCookieName,
			Secure: cfg.Auth.SecureCookies,
		}),
		AuthMiddleware: authMiddleware,
		Metrics:        adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}
}

func seedAdmin(ctx context.Context, cfg config.AuthConfig, authService *service.AuthService, logger *zap.Logger) {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return
	}
	created, err := authService.EnsureAdmin(ctx, "Administrator", cfg.SeedAdminEmail, cfg.SeedAdminPassword)
	if err != nil {
		logger.Error("failed to seed admin", zap.Error(err))
		return
	}
	if created {
		logger.Info("seeded superadmin", zap.String("email", cfg.SeedAdminEmail))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
