package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/geogate/internal/pkg/metrics"
)

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed, // Balance speed vs compression ratio
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return errTooManyRequests(c, "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, fast internal checks)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	// Geodata: upstream chains can take long, bounded by the request timeout
	perRequest := deps.requestTimeout()
	v1 := app.Group("/v1")
	v1.Get("/buildings", timeout.NewWithContext(BuildingsHandler(deps), perRequest))
	v1.Get("/terraces", timeout.NewWithContext(TerracesHandler(deps), perRequest))

	// Legacy serverless paths
	legacy := app.Group("/api", DeprecationMiddleware(legacyRoutes))
	legacy.Get("/buildings", timeout.NewWithContext(BuildingsHandler(deps), perRequest))
	legacy.Get("/terraces", timeout.NewWithContext(TerracesHandler(deps), perRequest))

	// GraphQL
	app.Post("/graphql", timeout.NewWithContext(GraphQLHandler(deps), perRequest))

	// API documentation (Swagger UI)
	SetupDocs(app, deps.docsPath())

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
