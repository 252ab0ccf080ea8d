package models

import "time"

// RewardType indicates what was granted by a ledger row.
type RewardType string

const (
	RewardTypeXP    RewardType = "XP"
	RewardTypeCoins RewardType = "COINS"
	RewardTypeBadge RewardType = "BADGE"
	RewardTypeItem  RewardType = "ITEM"
)

// RewardSource categorizes the operation that produced a ledger row.
type RewardSource string

const (
	SourceChallengeCompletion RewardSource = "CHALLENGE_COMPLETION"
	SourceBadgeEarned         RewardSource = "BADGE_EARNED"
	SourceLevelUp             RewardSource = "LEVEL_UP"
	SourceStreakBonus         RewardSource = "STREAK_BONUS"
	SourceShopPurchase        RewardSource = "SHOP_PURCHASE"
	SourceAdminGrant          RewardSource = "ADMIN_GRANT"
)

// RewardHistory is the append-only ledger: one row per grant, never updated or
// deleted by this service. Rows emitted by the same logical event share a
// SourceID so the feed can sum them into a single item.
type RewardHistory struct {
	ID          string       `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string       `gorm:"index;not null" json:"user_id"`
	Type        RewardType   `gorm:"type:varchar(16);not null;index" json:"type"`
	Amount      int64        `json:"amount" gorm:"default:0"`
	Source      RewardSource `gorm:"type:varchar(32);not null" json:"source"`
	SourceID    string       `gorm:"index" json:"source_id,omitempty"` // originating entity id
	Description string       `gorm:"type:text" json:"description,omitempty"`
	CreatedAt   time.Time    `gorm:"autoCreateTime;index" json:"created_at"`
}
