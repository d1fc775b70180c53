package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/spec-kit/auth-service/internal/api/http/handlers"
	"github.com/spec-kit/auth-service/internal/auth"
	"github.com/spec-kit/auth-service/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UsersHandler
	Authenticator *auth.Authenticator
	Metrics       *observability.Metrics
}

// RegisterRoutes wires HTTP routes. Every route is authenticated unless it is
// on the authenticator's public list.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Use(cfg.Authenticator.Handle)

	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	if registry := cfg.Metrics.Registry(); registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	api := app.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Post("/login", cfg.Auth.Login)
	authGroup.Get("/logout", cfg.Auth.Logout)
	authGroup.Post("/logout", cfg.Auth.Logout)
	authGroup.Post("/blacklisted_tokens", cfg.Auth.Blacklist)

	api.Get("/me", cfg.Users.Me)
}
