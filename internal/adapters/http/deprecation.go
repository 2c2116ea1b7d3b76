package http

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
)

// DeprecatedRoute marks an endpoint as deprecated with sunset date.
type DeprecatedRoute struct {
	Path        string    // exact request path
	SunsetDate  time.Time // Date when endpoint will be removed
	Alternative string    // Recommended alternative endpoint (optional)
}

// legacySunset is when the /api aliases are removed.
var legacySunset = time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC)

// legacyRoutes are the paths of the first, serverless deployment.
var legacyRoutes = []DeprecatedRoute{
	{Path: "/api/buildings", SunsetDate: legacySunset, Alternative: "/v1/buildings"},
	{Path: "/api/terraces", SunsetDate: legacySunset, Alternative: "/v1/terraces"},
}

// DeprecationMiddleware adds Deprecation, Sunset, and Link headers to deprecated endpoints.
func DeprecationMiddleware(deprecated []DeprecatedRoute) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, d := range deprecated {
			if c.Path() != d.Path {
				continue
			}
			// RFC 8594
			c.Set("Deprecation", "true")
			c.Set("Sunset", d.SunsetDate.UTC().Format(time.RFC1123))

			// RFC 8288
			if d.Alternative != "" {
				c.Set("Link", fmt.Sprintf(`<%s>; rel="successor-version"`, d.Alternative))
			}

			days := time.Until(d.SunsetDate).Hours() / 24
			c.Set("Warning", fmt.Sprintf(`299 - "Deprecated API, will sunset in %.0f days"`, days))
			break
		}

		return c.Next()
	}
}
