// handlers/progression_routes.go
package handlers

import (
	"strconv"
	"time"

	"habit-reward-system/models"
	"habit-reward-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupProgressionRoutes(app *fiber.App, db *gorm.DB, ledger *services.LedgerService) {
	securedGroup := app.Group("/")

	securedGroup.Get("/s/user/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		var user models.User
		if err := db.Where("id = ?", userID).First(&user).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "user not found"})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "DB error fetching user",
				"cause": err.Error(),
			})
		}

		// The stored level is authoritative for display; the formula only
		// ever raises it.
		current, span := services.XPProgressInLevel(user.XP, user.Level)
		return c.JSON(fiber.Map{
			"id":                 user.ID,
			"xp":                 user.XP,
			"level":              user.Level,
			"coins":              user.Coins,
			"current_streak":     user.CurrentStreak,
			"longest_streak":     user.LongestStreak,
			"xp_in_level":        current,
			"xp_for_level":       span,
			"xp_needed_for_next": services.XPNeededForNextLevel(user.XP, user.Level),
		})
	})

	securedGroup.Get("/s/user/rewards", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		filters := services.HistoryFilters{}
		filters.Page, _ = strconv.Atoi(c.Query("page", "1"))
		filters.Size, _ = strconv.Atoi(c.Query("size", "20"))
		if typeStr := c.Query("type"); typeStr != "" {
			rewardType := models.RewardType(typeStr)
			filters.Type = &rewardType
		}
		if fromStr := c.Query("from"); fromStr != "" {
			if from, err := time.Parse(time.RFC3339, fromStr); err == nil {
				filters.From = &from
			}
		}
		if toStr := c.Query("to"); toStr != "" {
			if to, err := time.Parse(time.RFC3339, toStr); err == nil {
				filters.To = &to
			}
		}

		entries, total, err := ledger.GetRewardHistory(userID, filters)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(fiber.Map{
			"entries":     entries,
			"total_items": total,
			"page":        filters.Page,
			"size":        filters.Size,
		})
	})

	securedGroup.Get("/s/user/rewards/stats", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		stats, err := ledger.GetRewardStats(userID)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(stats)
	})

	securedGroup.Get("/s/user/rewards/recent", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		n, _ := strconv.Atoi(c.Query("limit", "10"))
		entries, err := ledger.GetRecentRewards(userID, n)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(entries)
	})

	securedGroup.Get("/s/user/feed", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit, _ := strconv.Atoi(c.Query("limit", "20"))
		feed, err := ledger.GetRewardFeed(userID, limit)
		if err != nil {
			return serviceError(c, err)
		}
		return c.JSON(feed)
	})
}
