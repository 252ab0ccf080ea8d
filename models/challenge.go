package models

import "time"

// Challenge is a catalog definition. Managed by catalog administration;
// read-only from the reward engine's perspective.
type Challenge struct {
	ID          string `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string `gorm:"not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
	Category    string `gorm:"index" json:"category"` // e.g., "fitness", "mindfulness"

	XPReward    int64 `json:"xp_reward" gorm:"default:0"`
	CoinsReward int64 `json:"coins_reward" gorm:"default:0"`

	// Auto-verifiable challenges complete when VerificationEvent fires.
	AutoVerifiable    bool   `json:"auto_verifiable" gorm:"default:false"`
	VerificationEvent string `gorm:"index" json:"verification_event,omitempty"`

	IsActive bool `json:"is_active" gorm:"default:true;index"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

type UserChallengeStatus string

const (
	UserChallengeStatusPending    UserChallengeStatus = "PENDING"
	UserChallengeStatusInProgress UserChallengeStatus = "IN_PROGRESS"
	UserChallengeStatusCompleted  UserChallengeStatus = "COMPLETED"
)

// UserChallenge assigns a Challenge to a User for one day. It transitions to
// COMPLETED exactly once; re-completion is rejected, never re-rewarded.
type UserChallenge struct {
	ID          string              `gorm:"primaryKey;type:uuid" json:"id"`
	UserID      string              `gorm:"index;not null" json:"user_id"`
	ChallengeID string              `gorm:"index;not null" json:"challenge_id"`
	Challenge   Challenge           `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	Status      UserChallengeStatus `gorm:"type:varchar(16);index;default:'PENDING'" json:"status"`
	Progress    int                 `json:"progress" gorm:"default:0"` // 0..100
	AssignedAt  time.Time           `gorm:"index;not null" json:"assigned_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}
