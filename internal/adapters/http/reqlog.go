package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geogate/internal/pkg/logging"
)

// RequestIDLogMiddleware injects a per-request *slog.Logger carrying the
// Fiber request ID into the user context, for logging.FromContext downstream.
func RequestIDLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		rid, ok := c.Locals("requestid").(string)
		if !ok || rid == "" {
			return c.Next()
		}

		reqLogger := slog.Default().With("request_id", rid)
		c.SetUserContext(logging.WithLogger(c.UserContext(), reqLogger))

		return c.Next()
	}
}
