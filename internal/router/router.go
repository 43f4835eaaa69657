package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/classync-go-api/internal/config"
	"github.com/noah-isme/classync-go-api/internal/handler"
	"github.com/noah-isme/classync-go-api/internal/middleware"
	"github.com/noah-isme/classync-go-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ImportHandler *handler.ImportHandler
	GradeHandler  *handler.GradeHandler
	JWTMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.ImportHandler != nil {
		imports := api.Group("/imports", jwtMiddleware,
			middleware.RateLimit("imports", cfg.ImportRateMax, cfg.ImportRateWindow))
		deps.ImportHandler.Register(imports)
	}

	if deps.GradeHandler != nil {
		grading := api.Group("/", jwtMiddleware)
		deps.GradeHandler.Register(grading)
	}
}
