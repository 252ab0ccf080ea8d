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

type ChallengeService struct {
	DB     *gorm.DB
	Ledger *LedgerService
}

func NewChallengeService(db *gorm.DB, ledger *LedgerService) *ChallengeService {
	return &ChallengeService{DB: db, Ledger: ledger}
}

// dayRange returns the [start, end) bounds of t's calendar day.
func dayRange(t time.Time) (time.Time, time.Time) {
	year, month, day := t.Date()
	start := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 0, 1)
}

// dateKey formats t as the YYYY-MM-DD quota key used by invitations.
func dateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// EvaluateChallengeCompletion completes today's pending instances of every
// active auto-verifiable challenge bound to eventName. Each completion is one
// transaction: status flip, xp/coin grant and ledger rows commit together. A
// user without a pending instance today is skipped, not an error.
func (s *ChallengeService) EvaluateChallengeCompletion(userID, eventName string) error {
	if eventName == "" {
		return nil
	}

	var challenges []models.Challenge
	if err := s.DB.Where("auto_verifiable = ? AND verification_event = ? AND is_active = ?",
		true, eventName, true).
		Find(&challenges).Error; err != nil {
		return err
	}

	for i := range challenges {
		challenge := challenges[i]
		completed, err := s.completePendingInstance(userID, &challenge)
		if err != nil {
			return err
		}
		if completed {
			log.Printf("✅ [CHALLENGE] Auto-completed %q for user %s (event %s)",
				challenge.Title, userID, eventName)
		}
	}
	return nil
}

// completePendingInstance flips today's PENDING instance of the challenge to
// COMPLETED and grants its rewards, all in one transaction.
func (s *ChallengeService) completePendingInstance(userID string, challenge *models.Challenge) (bool, error) {
	completed := false
	start, end := dayRange(time.Now())
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var instance models.UserChallenge
		err := tx.Where("user_id = ? AND challenge_id = ? AND status = ? AND assigned_at >= ? AND assigned_at < ?",
			userID, challenge.ID, models.UserChallengeStatusPending, start, end).
			First(&instance).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil // nothing pending today for this challenge
		}
		if err != nil {
			return err
		}
		granted, err := s.completeInstanceTx(tx, &instance, challenge)
		if err != nil {
			return err
		}
		completed = granted
		return nil
	})
	return completed, err
}

// completeInstanceTx is the shared completion body for auto-verification and
// manual completion. Runs inside the caller's transaction. The status flip is
// a guarded UPDATE so the terminal-state predicate is re-evaluated at write
// time: under READ COMMITTED a concurrent completion can commit between our
// read and our write, and the plain read alone does not arbitrate that race.
// Returns false when the row was already COMPLETED; nothing is granted then.
func (s *ChallengeService) completeInstanceTx(tx *gorm.DB, instance *models.UserChallenge, challenge *models.Challenge) (bool, error) {
	now := time.Now()
	res := tx.Model(&models.UserChallenge{}).
		Where("id = ? AND status <> ?", instance.ID, models.UserChallengeStatusCompleted).
		Updates(map[string]interface{}{
			"status":       models.UserChallengeStatusCompleted,
			"completed_at": now,
			"progress":     100,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil // concurrent completion won; it already rewarded
	}
	instance.Status = models.UserChallengeStatusCompleted
	instance.CompletedAt = &now
	instance.Progress = 100

	var user models.User
	if err := tx.Where("id = ?", instance.UserID).First(&user).Error; err != nil {
		return false, fmt.Errorf("user %s: %w", instance.UserID, ErrNotFound)
	}
	user.XP += challenge.XPReward
	user.Coins += challenge.CoinsReward
	if level := LevelFromXP(user.XP); level > user.Level {
		user.Level = level
	}
	s.updateStreak(tx, &user, now)
	if err := tx.Save(&user).Error; err != nil {
		return false, err
	}

	// Grant and ledger rows commit together; the feed groups them by the
	// instance id.
	if challenge.XPReward > 0 {
		if err := s.Ledger.AppendTx(tx, &models.RewardHistory{
			UserID:      user.ID,
			Type:        models.RewardTypeXP,
			Amount:      challenge.XPReward,
			Source:      models.SourceChallengeCompletion,
			SourceID:    instance.ID,
			Description: fmt.Sprintf("Completed %q", challenge.Title),
		}); err != nil {
			return false, err
		}
	}
	if challenge.CoinsReward > 0 {
		if err := s.Ledger.AppendTx(tx, &models.RewardHistory{
			UserID:      user.ID,
			Type:        models.RewardTypeCoins,
			Amount:      challenge.CoinsReward,
			Source:      models.SourceChallengeCompletion,
			SourceID:    instance.ID,
			Description: fmt.Sprintf("Coins for %q", challenge.Title),
		}); err != nil {
			return false, err
		}
	}
	return true, nil
}

// updateStreak advances the day-streak counters for a completion at now.
// First completion today extends (or restarts) the streak; later ones are
// counted already.
func (s *ChallengeService) updateStreak(tx *gorm.DB, user *models.User, now time.Time) {
	todayStart, todayEnd := dayRange(now)

	var completedToday int64
	tx.Model(&models.UserChallenge{}).
		Where("user_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
			user.ID, models.UserChallengeStatusCompleted, todayStart, todayEnd).
		Count(&completedToday)
	if completedToday > 1 {
		return // streak already advanced today
	}

	var completedYesterday int64
	tx.Model(&models.UserChallenge{}).
		Where("user_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
			user.ID, models.UserChallengeStatusCompleted, todayStart.AddDate(0, 0, -1), todayStart).
		Count(&completedYesterday)

	if completedYesterday > 0 {
		user.CurrentStreak++
	} else {
		user.CurrentStreak = 1
	}
	if user.CurrentStreak > user.LongestStreak {
		user.LongestStreak = user.CurrentStreak
	}
}

// CompleteChallenge is the manual completion path (user taps "done").
// Returns the updated instance; re-completion is a validation error, never a
// second grant.
func (s *ChallengeService) CompleteChallenge(userID, userChallengeID string) (*models.UserChallenge, error) {
	var result models.UserChallenge
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var instance models.UserChallenge
		if err := tx.Where("id = ?", userChallengeID).First(&instance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("challenge instance %s: %w", userChallengeID, ErrNotFound)
			}
			return err
		}
		if instance.UserID != userID {
			return validationErr("challenge does not belong to this user")
		}
		if instance.Status == models.UserChallengeStatusCompleted {
			return validationErr("challenge already completed")
		}

		var challenge models.Challenge
		if err := tx.Where("id = ?", instance.ChallengeID).First(&challenge).Error; err != nil {
			return fmt.Errorf("challenge %s: %w", instance.ChallengeID, ErrNotFound)
		}
		granted, err := s.completeInstanceTx(tx, &instance, &challenge)
		if err != nil {
			return err
		}
		if !granted {
			// Completed concurrently after our status read.
			return validationErr("challenge already completed")
		}
		result = instance
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// CountCompletedToday returns how many challenges the user finished today.
// Handlers use it to decide whether to emit DAILY_CHALLENGES_COMPLETED.
func (s *ChallengeService) CountCompletedToday(userID string) (int64, error) {
	start, end := dayRange(time.Now())
	var n int64
	err := s.DB.Model(&models.UserChallenge{}).
		Where("user_id = ? AND status = ? AND completed_at >= ? AND completed_at < ?",
			userID, models.UserChallengeStatusCompleted, start, end).
		Count(&n).Error
	return n, err
}

// GetUserChallenges lists the user's instances for today, challenge
// definitions preloaded.
func (s *ChallengeService) GetUserChallenges(userID string) ([]models.UserChallenge, error) {
	start, end := dayRange(time.Now())
	var instances []models.UserChallenge
	err := s.DB.Preload("Challenge").
		Where("user_id = ? AND assigned_at >= ? AND assigned_at < ?", userID, start, end).
		Order("assigned_at ASC").
		Find(&instances).Error
	return instances, err
}

// AssignDailyChallenges creates today's PENDING instance of every active
// challenge for every user. Idempotent: existing instances are left alone,
// so the scheduled job is safe to re-run.
func (s *ChallengeService) AssignDailyChallenges() (int, error) {
	var challenges []models.Challenge
	if err := s.DB.Where("is_active = ?", true).Find(&challenges).Error; err != nil {
		return 0, err
	}
	if len(challenges) == 0 {
		return 0, nil
	}

	var userIDs []string
	if err := s.DB.Model(&models.User{}).Pluck("id", &userIDs).Error; err != nil {
		return 0, err
	}

	start, end := dayRange(time.Now())
	created := 0
	for _, userID := range userIDs {
		for i := range challenges {
			challenge := challenges[i]
			var existing int64
			if err := s.DB.Model(&models.UserChallenge{}).
				Where("user_id = ? AND challenge_id = ? AND assigned_at >= ? AND assigned_at < ?",
					userID, challenge.ID, start, end).
				Count(&existing).Error; err != nil {
				return created, err
			}
			if existing > 0 {
				continue
			}
			instance := models.UserChallenge{
				ID:          uuid.NewString(),
				UserID:      userID,
				ChallengeID: challenge.ID,
				Status:      models.UserChallengeStatusPending,
				AssignedAt:  time.Now(),
			}
			if err := s.DB.Create(&instance).Error; err != nil {
				return created, err
			}
			created++
		}
	}
	if created > 0 {
		log.Printf("📅 [ASSIGN] Created %d challenge instance(s) for %d user(s)", created, len(userIDs))
	}
	return created, nil
}
