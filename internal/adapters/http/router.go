package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/transporteba/internal/pkg/metrics"
)

// requestTimeout bounds every proxied request, upstream call included.
const requestTimeout = 20 * time.Second

// SetupRoutes registers the REST, GraphQL, WebSocket and static routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	allowOrigins := deps.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "*"
	}
	app.Use(cors.New(cors.Config{AllowOrigins: allowOrigins}))

	if deps.RateLimit > 0 {
		app.Use("/api", limiter.New(limiter.Config{
			Max:        deps.RateLimit,
			Expiration: time.Minute,
			KeyGenerator: func(c *fiber.Ctx) string {
				return c.IP()
			},
			LimitReached: func(c *fiber.Ctx) error {
				return newError(c, fiber.StatusTooManyRequests, "Demasiadas solicitudes", "intente nuevamente en un minuto")
			},
		}))
	}

	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		if deps.Version != "" {
			c.Set("X-API-Version", deps.Version)
		}
		return c.Next()
	})

	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	app.Get("/health", HealthHandler(deps))
	app.Get("/ready", ReadyHandler(deps))

	api := app.Group("/api")
	for _, e := range deps.Transit.Catalog().All() {
		api.Get("/"+e.Key(), timeout.NewWithContext(TransitHandler(deps, e), requestTimeout))
	}
	api.Get("/paradas-cercanas",
		DeprecationMiddleware(LegacyRoutes),
		timeout.NewWithContext(LegacyNearbyStopsHandler(deps), requestTimeout),
	)

	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), requestTimeout))

	SetupDocs(app, deps.OpenAPIPath)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))

	SetupStatic(app, deps.StaticDir)
}
