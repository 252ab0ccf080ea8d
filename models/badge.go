package models

import "time"

// BadgeRequirementType is the closed set of ways a badge can be earned.
type BadgeRequirementType string

const (
	RequirementChallengesCompleted BadgeRequirementType = "CHALLENGES_COMPLETED"
	RequirementStreakDays          BadgeRequirementType = "STREAK_DAYS"
	RequirementLevelReached        BadgeRequirementType = "LEVEL_REACHED"
	RequirementXPEarned            BadgeRequirementType = "XP_EARNED"
	RequirementCategoryMastery     BadgeRequirementType = "CATEGORY_MASTERY"
	RequirementSpecial             BadgeRequirementType = "SPECIAL"
)

// Badge is a catalog definition. Event-driven badges additionally carry the
// domain event name and the counter threshold that must be reached when that
// event fires.
type Badge struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Name        string `gorm:"not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	IconURL     string `gorm:"type:text" json:"icon_url,omitempty"`

	RequirementType  BadgeRequirementType `gorm:"type:varchar(32);not null" json:"requirement_type"`
	RequirementValue int64                `json:"requirement_value" gorm:"default:0"`
	Category         string               `json:"category,omitempty"` // for CATEGORY_MASTERY

	XPReward    int64 `json:"xp_reward" gorm:"default:0"`
	CoinsReward int64 `json:"coins_reward" gorm:"default:0"`

	// Event-driven badges: granted when the counter for Event reaches RequiredCount.
	Event         string `gorm:"index" json:"event,omitempty"`
	RequiredCount int64  `json:"required_count" gorm:"default:0"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

// UserBadge records one grant. The composite unique index is the idempotency
// guard: granting a badge is equivalent to this insert succeeding.
type UserBadge struct {
	ID       string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID   string    `gorm:"uniqueIndex:idx_user_badges_user_badge;not null" json:"user_id"`
	BadgeID  string    `gorm:"uniqueIndex:idx_user_badges_user_badge;not null" json:"badge_id"`
	Badge    Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	EarnedAt time.Time `gorm:"autoCreateTime" json:"earned_at"`
}

// Domain event names accepted by the dispatcher and the badge engine.
const (
	EventChallengeInviteSent      = "CHALLENGE_INVITE_SENT"
	EventChallengeInviteAccepted  = "CHALLENGE_INVITE_ACCEPTED"
	EventPostLiked                = "POST_LIKED"
	EventPostCommented            = "POST_COMMENTED"
	EventFriendshipCreated        = "FRIENDSHIP_CREATED"
	EventBadgeEarned              = "BADGE_EARNED"
	EventDailyChallengesCompleted = "DAILY_CHALLENGES_COMPLETED"
)
