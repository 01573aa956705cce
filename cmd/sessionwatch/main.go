package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spec-kit/exim-session/internal/api/dto"
	"github.com/spec-kit/exim-session/internal/client"
	"github.com/spec-kit/exim-session/internal/config"
	"github.com/spec-kit/exim-session/internal/credential"
	"github.com/spec-kit/exim-session/internal/domain"
	"github.com/spec-kit/exim-session/internal/observability"
	"github.com/spec-kit/exim-session/internal/session"
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

	if cfg.Watch.Email == "" || cfg.Watch.Password == "" {
		logger.Fatal("WATCH_EMAIL and WATCH_PASSWORD are required")
	}

	metrics, err := observability.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	creds, err := credential.NewStore(cfg.Session.APIBase, cfg.Auth.SessionCookieName)
	if err != nil {
		logger.Fatal("invalid session api base", zap.Error(err))
	}
	plain := client.NewHTTPClient(creds, cfg.Session.RequestTimeout())

	coordinator := session.NewCoordinator(map[domain.CredentialKind]session.Validator{
		domain.KindAdmin: session.NewAdminValidator(creds),
		domain.KindUser:  session.NewUserValidator(plain, cfg.Session.APIBase, cfg.Session.RequestTimeout()),
	}, session.Options{
		FreshnessWindow: cfg.Session.FreshnessWindow(),
		WaitTimeout:     cfg.Session.WaitTimeout(),
		Logger:          logger.Named("session"),
		Metrics:         metrics,
	})

	creds.OnChange(coordinator.InvalidateCache)
	api := client.New(cfg.Session.APIBase, creds, plain, coordinator, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	user, err := login(ctx, api, cfg.Watch)
	if err != nil {
		logger.Fatal("login failed", zap.Error(err))
	}
	logger.Info("signed in",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("kind", creds.ActiveKind().String()))

	expired := make(chan string, 1)
	logout := client.NewLogoutHandler(api, creds, logger,
		func(target string) {
			select {
			case expired <- target:
			default:
			}
		},
		func(message string) { logger.Warn(message) },
	)
	unsubscribe := coordinator.Subscribe(logout.Handle)
	defer unsubscribe()

	poller := session.NewPoller(coordinator, creds, cfg.Session.PollInterval(), logger.Named("poller"))
	poller.Init(ctx)
	defer poller.Cleanup()

	if every := cfg.Watch.KeepAlive(); every > 0 {
		go api.KeepAlive(ctx, every)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		if err := api.Logout(ctx, creds.UserID()); err != nil {
			logger.Warn("logout on shutdown failed", zap.Error(err))
		}
		creds.Clear()
	case target := <-expired:
		logger.Info("session ended; sign in again", zap.String("login", target))
	}
}

func login(ctx context.Context, api *client.Client, cfg config.WatchConfig) (*dto.UserResponse, error) {
	if cfg.Admin {
		return api.LoginAdmin(ctx, cfg.Email, cfg.Password)
	}
	return api.LoginUser(ctx, cfg.Email, cfg.Password)
}
