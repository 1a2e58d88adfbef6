package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RegisterHealthRoutes adds the health endpoint. It always answers 200; a
// failed dependency shows up as "unavailable" in checks so store details
// never reach the client.
func RegisterHealthRoutes(r fiber.Router, d Deps) {
	r.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		checks := fiber.Map{}
		healthy := true
		if err := d.Store.Ping(ctx); err != nil {
			d.Logger.Warn("health: store unreachable", "error", err)
			checks["store"] = "unavailable"
			healthy = false
		} else {
			checks["store"] = "ok"
		}
		if d.Cache != nil {
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				d.Logger.Warn("health: cache unreachable", "error", err)
				checks["cache"] = "unavailable"
				healthy = false
			} else {
				checks["cache"] = "ok"
			}
		}

		label := "healthy"
		if !healthy {
			label = "degraded"
		}
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":    label,
			"checks":    checks,
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}
