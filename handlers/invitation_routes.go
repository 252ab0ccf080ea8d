package handlers

import (
	"habit-reward-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupInvitationRoutes(app *fiber.App, invitations *services.InvitationService) {
	securedGroup := app.Group("/")

	securedGroup.Post("/s/invitations", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var req struct {
			ToUserID    string `json:"to_user_id"`
			ChallengeID string `json:"challenge_id"`
			Message     string `json:"message"`
		}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON"})
		}
		if req.ToUserID == "" || req.ChallengeID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "to_user_id and challenge_id are required"})
		}

		invitation, err := invitations.CreateInvitation(userID, req.ToUserID, req.ChallengeID, req.Message)
		if err != nil {
			return serviceError(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(invitation)
	})

	securedGroup.Post("/s/invitations/:id/accept", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		invitation, err := invitations.AcceptInvitation(c.Params("id"), userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(invitation)
	})

	securedGroup.Post("/s/invitations/:id/reject", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := invitations.RejectInvitation(c.Params("id"), userID); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "invitation rejected"})
	})

	securedGroup.Post("/s/invitations/:id/cancel", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := invitations.CancelInvitation(c.Params("id"), userID); err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{"message": "invitation cancelled"})
	})

	securedGroup.Get("/s/invitations/pending", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		pending, err := invitations.ListPendingInvitations(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(pending)
	})

	securedGroup.Get("/s/invitations", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		list, err := invitations.ListInvitations(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(list)
	})

	// Admin endpoints
	adminGroup := app.Group("/s/admin")

	adminGroup.Post("/invitations/cleanup", func(c *fiber.Ctx) error {
		result, err := invitations.RunCleanupSweep()
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "cleanup sweep failed",
				"cause": err.Error(),
			})
		}
		return c.JSON(result)
	})
}
