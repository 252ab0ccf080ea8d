package handlers

import (
	"habit-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

// serviceError maps the service error taxonomy onto HTTP: validation → 400,
// not-found → 404, anything else → 500.
func serviceError(c *fiber.Ctx, err error) error {
	switch {
	case services.IsValidation(err):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case services.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "internal error",
			"cause": err.Error(),
		})
	}
}
