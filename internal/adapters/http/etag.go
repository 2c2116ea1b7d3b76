package http

import (
	"crypto/sha256"
	"encoding/hex"

	"github.com/gofiber/fiber/v2"
)

// ETagMiddleware computes a weak ETag from the response body
// and returns 304 Not Modified if the client already has it.
// Responses marked no-store are left alone.
func ETagMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		// Process request first
		if err := c.Next(); err != nil {
			return err
		}

		// Only apply to successful GET responses with a body
		if c.Method() != fiber.MethodGet || c.Response().StatusCode() != 200 {
			return nil
		}

		if string(c.Response().Header.Peek(fiber.HeaderCacheControl)) == "no-store" {
			return nil
		}

		body := c.Response().Body()
		if len(body) == 0 {
			return nil
		}

		// Compute weak ETag from SHA-256 of body (first 16 hex chars)
		h := sha256.Sum256(body)
		etag := `W/"` + hex.EncodeToString(h[:8]) + `"`

		c.Set(fiber.HeaderETag, etag)

		// Check If-None-Match
		if c.Get(fiber.HeaderIfNoneMatch) == etag {
			c.Status(fiber.StatusNotModified)
			c.Response().ResetBody()
			return nil
		}

		return nil
	}
}
