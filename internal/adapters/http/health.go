package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/transporteba/internal/core/domain"
)

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()
	features := make([]string, 0, len(domain.Modes))
	for _, m := range domain.Modes {
		features = append(features, string(m))
	}

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message":   "Backend Transporte BA funcionando",
			"status":    "OK",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"uptime":    time.Since(startedAt).Round(time.Second).String(),
			"version":   deps.Version,
			"features":  features,
		})
	}
}

// ReadyHandler checks upstream, NATS and cache connectivity. Only the
// upstream API is required; the others are reported when configured.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 3*time.Second)
		defer cancel()

		checks := make(map[string]string)
		allOK := true

		if deps.Upstream != nil {
			if err := deps.Upstream.Ping(ctx); err != nil {
				checks["upstream"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["upstream"] = "ok"
			}
		} else {
			checks["upstream"] = "not configured"
			allOK = false
		}

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

		if deps.Cache != nil {
			if err := deps.Cache.Ping(ctx); err != nil {
				checks["cache"] = "error: " + err.Error()
				allOK = false
			} else {
				checks["cache"] = "ok"
			}
		} else {
			checks["cache"] = "not configured"
		}

		status, code := "ready", fiber.StatusOK
		if !allOK {
			status, code = "not ready", fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": checks,
		})
	}
}
