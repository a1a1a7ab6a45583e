package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/activities-api/internal/config"
	"github.com/noah-isme/activities-api/internal/handler"
	"github.com/noah-isme/activities-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	UserHandler     *handler.UserHandler
	ActivityHandler *handler.ActivityHandler
	ValueHandler    *handler.ValueHandler
	SeedHandler     *handler.SeedHandler
	JWTMiddleware   fiber.Handler
	AuthRateLimiter fiber.Handler
	HealthProbes    map[string]handler.HealthProbe
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.UserHandler != nil {
		deps.UserHandler.Register(api.Group("/user"), jwtMiddleware, deps.AuthRateLimiter)
	}

	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(api.Group("/activities", jwtMiddleware))
	}

	if deps.ValueHandler != nil {
		deps.ValueHandler.Register(api.Group("/values"))
	}

	if deps.SeedHandler != nil {
		deps.SeedHandler.Register(api.Group("/seed"))
	}
}
