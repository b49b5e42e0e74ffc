package httpapi

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
)

// Handlers bundles every HTTP handler the router wires up.
type Handlers struct {
	Timer  *TimerHandler
	Health *HealthHandler
}

// SetupRouter configures the Fiber app's middleware and routes.
func SetupRouter(app *fiber.App, h *Handlers) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} - ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Agent-ID,X-Request-ID",
	}))

	app.Get("/swagger/*", swagger.HandlerDefault)

	app.Get("/health", h.Health.Health)
	app.Get("/ready", h.Health.Ready)
	app.Get("/live", h.Health.Live)

	v1 := app.Group("/api/v1")

	timers := v1.Group("/timers")
	timers.Post("/", h.Timer.Create)
	timers.Get("/", h.Timer.List)
	timers.Get("/:id", h.Timer.Get)
	timers.Patch("/:id", h.Timer.Update)
	timers.Delete("/:id", h.Timer.Delete)
	timers.Post("/:id/replay", h.Timer.Replay)
}
