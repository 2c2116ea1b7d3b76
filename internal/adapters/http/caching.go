package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CachingMiddleware sets Cache-Control headers on GET responses based on endpoint.
// Geodata handlers set their own header depending on the result.
func CachingMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()

		if c.Method() != fiber.MethodGet {
			return err
		}

		// Don't override if already set
		if existing := string(c.Response().Header.Peek(fiber.HeaderCacheControl)); existing != "" {
			return err
		}

		path := c.Path()
		var ttl string

		switch {
		case path == "/v1/health" || path == "/v1/ready":
			ttl = "public, max-age=10"

		case path == "/metrics":
			ttl = "no-cache"

		case path == "/graphql":
			ttl = "private, max-age=0"

		case strings.HasPrefix(path, "/docs"):
			ttl = "public, max-age=3600"

		case c.Response().StatusCode() >= 400:
			ttl = "no-store"
		}

		if ttl != "" {
			c.Set(fiber.HeaderCacheControl, ttl)
		}

		return err
	}
}

// setResultCaching lets clients keep non-empty results for five minutes.
// Empty and placeholder results must be re-requested.
func setResultCaching(c *fiber.Ctx, cacheable bool) {
	if cacheable {
		c.Set(fiber.HeaderCacheControl, "public, max-age=300")
		return
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
}
