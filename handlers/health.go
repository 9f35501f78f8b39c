package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/ai-course-generator/database"
	"github.com/sahilchouksey/ai-course-generator/utils/response"
)

// HandleCheckHealth reports whether the database answers
func HandleCheckHealth(c *fiber.Ctx, store database.Storage) error {
	if err := store.HealthCheck(); err != nil {
		return response.ServiceUnavailable(c, "Database unavailable")
	}
	return c.JSON(fiber.Map{"status": "ok"})
}
