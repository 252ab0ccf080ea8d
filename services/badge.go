package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"habit-reward-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BadgeService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Notifier Notifier
	Tasks    *TaskRunner
}

func NewBadgeService(db *gorm.DB, ledger *LedgerService, notifier Notifier, tasks *TaskRunner) *BadgeService {
	return &BadgeService{DB: db, Ledger: ledger, Notifier: notifier, Tasks: tasks}
}

// eventCounter computes the progress counter for one domain event.
type eventCounter func(db *gorm.DB, userID string) (int64, error)

// eventCounters is the closed mapping from event name to counter. An event
// missing here makes EvaluateBadges a no-op, not an error.
var eventCounters = map[string]eventCounter{
	models.EventChallengeInviteSent:      countInvitationsSent,
	models.EventChallengeInviteAccepted:  countInvitationsAcceptedAsReceiver,
	models.EventPostLiked:                countLikesGiven,
	models.EventPostCommented:            countCommentsAuthored,
	models.EventFriendshipCreated:        countFriendships,
	models.EventBadgeEarned:              countBadgesOwned,
	models.EventDailyChallengesCompleted: dailyChallengeSetDone,
}

func countInvitationsSent(db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.Model(&models.ChallengeInvitation{}).
		Where("from_user_id = ?", userID).
		Count(&n).Error
	return n, err
}

func countInvitationsAcceptedAsReceiver(db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.Model(&models.ChallengeInvitation{}).
		Where("to_user_id = ? AND status = ?", userID, models.InvitationStatusAccepted).
		Count(&n).Error
	return n, err
}

func countLikesGiven(db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.Model(&models.PostLike{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func countCommentsAuthored(db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.Model(&models.PostComment{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

func countFriendships(db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.Model(&models.Friendship{}).
		Where("user_id = ? OR friend_id = ?", userID, userID).
		Count(&n).Error
	return n, err
}

func countBadgesOwned(db *gorm.DB, userID string) (int64, error) {
	var n int64
	err := db.Model(&models.UserBadge{}).Where("user_id = ?", userID).Count(&n).Error
	return n, err
}

// dailyChallengeSetDone collapses "completed at least 3 challenges today"
// into a 0/1 counter.
func dailyChallengeSetDone(db *gorm.DB, userID string) (int64, error) {
	start, end := dayRange(time.Now())
	var n int64
	err := db.Model(&models.UserChallenge{}).
		Where("user_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
			userID, models.UserChallengeStatusCompleted, start, end).
		Count(&n).Error
	if err != nil {
		return 0, err
	}
	if n >= 3 {
		return 1, nil
	}
	return 0, nil
}

// EvaluateBadges awards every active badge bound to eventName whose counter
// threshold is met and that the user does not own yet. The grant itself is
// transactional; ledger audit rows, the notification and the recursive
// BADGE_EARNED evaluation run as detached tasks.
func (s *BadgeService) EvaluateBadges(userID, eventName string) error {
	counter, known := eventCounters[eventName]
	if !known {
		return nil
	}

	var badges []models.Badge
	if err := s.DB.Where("event = ? AND is_active = ?", eventName, true).
		Order("required_count ASC").
		Find(&badges).Error; err != nil {
		return err
	}
	if len(badges) == 0 {
		return nil
	}

	eventCount, err := counter(s.DB, userID)
	if err != nil {
		return err
	}

	owned, err := s.ownedBadgeIDs(userID)
	if err != nil {
		return err
	}

	for i := range badges {
		badge := badges[i]
		if owned[badge.ID] {
			continue
		}
		if eventCount < badge.RequiredCount {
			continue
		}

		userBadgeID, err := s.grantBadge(userID, &badge)
		if err != nil {
			return err
		}
		if userBadgeID == "" {
			// Another evaluation won the race; nothing to audit.
			continue
		}

		log.Printf("🎖️ [BADGE] Awarded %q to user %s (event %s, count %d)",
			badge.Name, userID, eventName, eventCount)

		s.Tasks.Go("badge-audit", func() error {
			return s.auditBadgeGrant(userID, userBadgeID, &badge)
		})
		s.Tasks.Go("badge-notify", func() error {
			return s.Notifier.SendToUser(userID, "Badge earned!",
				fmt.Sprintf("You earned the %q badge", badge.Name))
		})
		s.Tasks.Go("badge-earned-reevaluate", func() error {
			return s.EvaluateBadges(userID, models.EventBadgeEarned)
		})
	}
	return nil
}

func (s *BadgeService) ownedBadgeIDs(userID string) (map[string]bool, error) {
	var rows []models.UserBadge
	if err := s.DB.Where("user_id = ?", userID).Find(&rows).Error; err != nil {
		return nil, err
	}
	owned := make(map[string]bool, len(rows))
	for _, r := range rows {
		owned[r.BadgeID] = true
	}
	return owned, nil
}

// grantBadge performs the atomic grant: insert the UserBadge row, bump
// xp/coins. The unique (user_id, badge_id) index is the final race arbiter:
// a duplicate-key failure means a concurrent evaluator granted first, the
// transaction rolls back and the race resolves silently. Returns the new
// UserBadge id, or "" when the race was lost.
func (s *BadgeService) grantBadge(userID string, badge *models.Badge) (string, error) {
	userBadge := models.UserBadge{
		ID:       uuid.NewString(),
		UserID:   userID,
		BadgeID:  badge.ID,
		EarnedAt: time.Now(),
	}
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&userBadge).Error; err != nil {
			return err
		}

		var user models.User
		if err := tx.Where("id = ?", userID).First(&user).Error; err != nil {
			return fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		user.XP += badge.XPReward
		user.Coins += badge.CoinsReward
		if level := LevelFromXP(user.XP); level > user.Level {
			user.Level = level
		}
		return tx.Save(&user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return userBadge.ID, nil
}

// auditBadgeGrant appends the ledger rows for one grant. Best-effort: runs
// outside the grant transaction, failures are logged by the task runner.
func (s *BadgeService) auditBadgeGrant(userID, userBadgeID string, badge *models.Badge) error {
	rows := []models.RewardHistory{{
		UserID:      userID,
		Type:        models.RewardTypeBadge,
		Amount:      1,
		Source:      models.SourceBadgeEarned,
		SourceID:    userBadgeID,
		Description: fmt.Sprintf("Earned badge %q", badge.Name),
	}}
	if badge.XPReward > 0 {
		rows = append(rows, models.RewardHistory{
			UserID:      userID,
			Type:        models.RewardTypeXP,
			Amount:      badge.XPReward,
			Source:      models.SourceBadgeEarned,
			SourceID:    userBadgeID,
			Description: fmt.Sprintf("XP for badge %q", badge.Name),
		})
	}
	if badge.CoinsReward > 0 {
		rows = append(rows, models.RewardHistory{
			UserID:      userID,
			Type:        models.RewardTypeCoins,
			Amount:      badge.CoinsReward,
			Source:      models.SourceBadgeEarned,
			SourceID:    userBadgeID,
			Description: fmt.Sprintf("Coins for badge %q", badge.Name),
		})
	}
	for i := range rows {
		if err := s.Ledger.Append(&rows[i]); err != nil {
			return err
		}
	}
	return nil
}

// GetAllBadges returns the active badge catalog.
func (s *BadgeService) GetAllBadges() ([]models.Badge, error) {
	var badges []models.Badge
	err := s.DB.Where("is_active = ?", true).Order("created_at ASC").Find(&badges).Error
	return badges, err
}

// GetUserBadges returns the user's grants with badge definitions preloaded.
func (s *BadgeService) GetUserBadges(userID string) ([]models.UserBadge, error) {
	var grants []models.UserBadge
	err := s.DB.Preload("Badge").
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&grants).Error
	return grants, err
}

// BadgeProgress reports one badge with the user's standing against it.
type BadgeProgress struct {
	Badge      models.Badge `json:"badge"`
	Earned     bool         `json:"earned"`
	EarnedAt   *time.Time   `json:"earned_at,omitempty"`
	Current    int64        `json:"current"`
	Required   int64        `json:"required"`
	Percentage int          `json:"percentage"`
}

// GetBadgeProgress returns every active badge with earned state and
// current/required/percentage progress.
func (s *BadgeService) GetBadgeProgress(userID string) ([]BadgeProgress, error) {
	badges, err := s.GetAllBadges()
	if err != nil {
		return nil, err
	}

	var grants []models.UserBadge
	if err := s.DB.Where("user_id = ?", userID).Find(&grants).Error; err != nil {
		return nil, err
	}
	earnedAt := make(map[string]time.Time, len(grants))
	for _, g := range grants {
		earnedAt[g.BadgeID] = g.EarnedAt
	}

	var user models.User
	if err := s.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, ErrNotFound)
	}

	progress := make([]BadgeProgress, 0, len(badges))
	for i := range badges {
		badge := badges[i]
		current, required, err := s.badgeStanding(&user, &badge)
		if err != nil {
			return nil, err
		}

		item := BadgeProgress{
			Badge:    badge,
			Current:  current,
			Required: required,
		}
		if at, ok := earnedAt[badge.ID]; ok {
			item.Earned = true
			t := at
			item.EarnedAt = &t
			item.Current = required
			item.Percentage = 100
		} else if required > 0 {
			item.Percentage = int(current * 100 / required)
			if item.Percentage > 100 {
				item.Percentage = 100
			}
		}
		progress = append(progress, item)
	}
	return progress, nil
}

// badgeStanding resolves the user's counter for one badge: event badges use
// the event counter table, the rest a closed switch over requirement types.
func (s *BadgeService) badgeStanding(user *models.User, badge *models.Badge) (current, required int64, err error) {
	if badge.Event != "" {
		required = badge.RequiredCount
		counter, known := eventCounters[badge.Event]
		if !known {
			return 0, required, nil
		}
		current, err = counter(s.DB, user.ID)
		return current, required, err
	}

	required = badge.RequirementValue
	switch badge.RequirementType {
	case models.RequirementChallengesCompleted:
		err = s.DB.Model(&models.UserChallenge{}).
			Where("user_id = ? AND status = ?", user.ID, models.UserChallengeStatusCompleted).
			Count(&current).Error
	case models.RequirementStreakDays:
		current = int64(user.LongestStreak)
	case models.RequirementLevelReached:
		current = int64(displayLevel(user.XP, user.Level))
	case models.RequirementXPEarned:
		current = user.XP
	case models.RequirementCategoryMastery:
		err = s.DB.Model(&models.UserChallenge{}).
			Joins("JOIN challenges ON challenges.id = user_challenges.challenge_id").
			Where("user_challenges.user_id = ? AND user_challenges.status = ? AND challenges.category = ?",
				user.ID, models.UserChallengeStatusCompleted, badge.Category).
			Count(&current).Error
	case models.RequirementSpecial:
		// Granted manually or via an event binding; no computable progress.
		current = 0
	}
	return current, required, err
}
