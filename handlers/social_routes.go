package handlers

import (
	"log"

	"habit-reward-system/models"
	"habit-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupSocialRoutes(app *fiber.App, dispatcher *services.SocialEventDispatcher, challenges *services.ChallengeService) {
	securedGroup := app.Group("/")

	// Event ingest: the surrounding application commits a domain action
	// (like, comment, friendship, ...) and then reports it here.
	securedGroup.Post("/s/events", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			Event string `json:"event"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.Event == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "event is required"})
		}

		if err := dispatcher.Dispatch(userID, req.Event); err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "event dispatch failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"message": "event processed", "event": req.Event})
	})

	securedGroup.Get("/s/user/challenges", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		instances, err := challenges.GetUserChallenges(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(instances)
	})

	securedGroup.Post("/s/user/challenges/:id/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		instance, err := challenges.CompleteChallenge(userID, c.Params("id"))
		if err != nil {
			return serviceError(c, err)
		}

		// Finishing the daily set is itself a domain event.
		if done, err := challenges.CountCompletedToday(userID); err == nil && done >= 3 {
			if err := dispatcher.Dispatch(userID, models.EventDailyChallengesCompleted); err != nil {
				// Best-effort: the completion above already committed.
				log.Printf("⚠️ daily-set dispatch failed for %s: %v", userID, err)
			}
		}
		return c.JSON(instance)
	})
}
