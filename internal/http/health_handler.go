package http

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
)

// HealthIndexAction reports process liveness and database reachability.
func HealthIndexAction(ctx *cartridge.Context) error {
	db := ctx.DBManager.GetConnection()
	if db == nil {
		return ctx.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"db":     "unavailable",
		})
	}

	sqlDB, err := db.DB()
	if err != nil || sqlDB.Ping() != nil {
		return ctx.Status(http.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "degraded",
			"db":     "unreachable",
		})
	}

	return ctx.JSON(fiber.Map{"status": "ok"})
}
