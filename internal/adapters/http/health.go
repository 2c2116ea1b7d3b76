package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// ReadyHandler checks that every layer has a source chain and that NATS,
// when configured, is connected.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		checks := make(map[string]any)
		allOK := true

		// Source chains
		layers := map[string][]string{
			"buildings": deps.Buildings.Strategies(),
			"terraces":  deps.Terraces.Strategies(),
		}
		for layer, chain := range layers {
			if len(chain) == 0 {
				checks[layer] = "no sources configured"
				allOK = false
				continue
			}
			checks[layer] = chain
		}

		// NATS
		if deps.NATS != nil {
			if deps.NATS.IsConnected() {
				checks["nats"] = "ok"
			} else {
				checks["nats"] = "disconnected"
				allOK = false
			}
		} else {
			checks["nats"] = "not configured"
		}

		status := "ready"
		code := fiber.StatusOK
		if !allOK {
			status = "not ready"
			code = fiber.StatusServiceUnavailable
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
