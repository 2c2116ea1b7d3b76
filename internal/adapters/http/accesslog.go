package http

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/geogate/internal/pkg/logging"
)

// AccessLogMiddleware logs HTTP requests with structured slog output.
// Logs: method, path, bbox, status, latency, bytes sent and error (if any).
// The request ID comes from the request-scoped logger.
func AccessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		path := c.Path()
		method := c.Method()
		bbox := c.Query("bbox")

		err := c.Next()

		status := c.Response().StatusCode()
		latency := time.Since(start)

		attrs := []slog.Attr{
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("status", status),
			slog.String("latency", latency.String()),
			slog.Int("bytes_out", len(c.Response().Body())),
		}
		if bbox != "" {
			attrs = append(attrs, slog.String("bbox", bbox))
		}

		level := slog.LevelInfo
		if status >= 500 {
			level = slog.LevelError
		} else if status >= 400 {
			level = slog.LevelWarn
		}

		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			level = slog.LevelError
		}

		logging.FromContext(c.UserContext()).LogAttrs(c.UserContext(), level, fmt.Sprintf("%s %s", method, path), attrs...)

		return err
	}
}
