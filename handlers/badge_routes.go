package handlers

import (
	"habit-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupBadgeRoutes(app *fiber.App, badges *services.BadgeService) {
	securedGroup := app.Group("/")

	securedGroup.Get("/s/badges", func(c *fiber.Ctx) error {
		catalog, err := badges.GetAllBadges()
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(catalog)
	})

	securedGroup.Get("/s/user/badges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		grants, err := badges.GetUserBadges(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(grants)
	})

	securedGroup.Get("/s/user/badges/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		progress, err := badges.GetBadgeProgress(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(progress)
	})
}
