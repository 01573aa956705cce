package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/exim-session/internal/api/http/handlers"
	"github.com/spec-kit/exim-session/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	AuthMiddleware *auth.AuthMiddleware
	Metrics        fiber.Handler
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if cfg.Metrics != nil {
		app.Get("/metrics", cfg.Metrics)
	}

	api := app.Group("/api")
	api.Post("/login", cfg.Auth.Login)
	api.Post("/admin/login", cfg.Auth.AdminLogin)
	api.Get("/validate-session", cfg.Auth.ValidateSession)
	api.Get("/verify-session", cfg.Auth.ValidateSession)
	api.Post("/logout", cfg.Auth.Logout)
	api.Get("/me", cfg.AuthMiddleware.Handle, auth.RequireAnyRole(), cfg.Auth.Me)
}
